package shared

import "errors"

// Taxonomy sentinels. Domain packages wrap these so transport code can map any
// failure to a response class with errors.Is.
var (
	// ErrValidation indicates malformed or logically invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrState indicates an illegal state transition.
	ErrState = errors.New("invalid state transition")
	// ErrNotFound indicates a missing entity or one outside the caller's org.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e kindError) Error() string { return e.msg }

func (e kindError) Unwrap() error { return e.kind }

// Validation builds an error classified as ErrValidation.
func Validation(msg string) error { return kindError{kind: ErrValidation, msg: msg} }

// State builds an error classified as ErrState.
func State(msg string) error { return kindError{kind: ErrState, msg: msg} }

// NotFound builds an error classified as ErrNotFound.
func NotFound(msg string) error { return kindError{kind: ErrNotFound, msg: msg} }

// Conflict builds an error classified as ErrConflict.
func Conflict(msg string) error { return kindError{kind: ErrConflict, msg: msg} }
