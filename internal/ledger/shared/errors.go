package shared

import (
	internal "github.com/meridian-erp/meridian-erp/internal/shared"
)

var (
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = internal.Validation("ledger: journal requires at least two lines")
	// ErrUnbalanced indicates debit != credit beyond tolerance.
	ErrUnbalanced = internal.Validation("ledger: journal lines must balance")
	// ErrAccountNotFound indicates a missing or foreign-org account.
	ErrAccountNotFound = internal.NotFound("ledger: account not found")
	// ErrAccountInactive indicates a line references a deactivated account.
	ErrAccountInactive = internal.Validation("ledger: account is inactive")
	// ErrDuplicateCode indicates an account code collision within the org.
	ErrDuplicateCode = internal.Conflict("ledger: account code already exists")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = internal.NotFound("ledger: journal entry not found")
	// ErrSourceAlreadyLinked indicates idempotency conflict on the source ref.
	ErrSourceAlreadyLinked = internal.Conflict("ledger: source already linked")
	// ErrHierarchyCycle indicates the account tree loops back on itself.
	ErrHierarchyCycle = internal.Validation("ledger: account hierarchy contains a cycle")
	// ErrParentNotFound indicates the referenced parent account is missing.
	ErrParentNotFound = internal.Validation("ledger: parent account not found")
)
