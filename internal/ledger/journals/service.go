package journals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort records journal mutations.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// CacheBumper invalidates cached report payloads after a posting.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service owns journal entry lifecycle rules.
type Service struct {
	logger *slog.Logger
	repo   Repository
	audit  AuditPort
	bumper CacheBumper
	now    func() time.Time
}

// NewService builds the journal service.
func NewService(logger *slog.Logger, repo Repository, audit AuditPort, bumper CacheBumper) *Service {
	return &Service{logger: logger, repo: repo, audit: audit, bumper: bumper, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and persists a new entry in DRAFT. Lines and the header
// are written in one transaction so nothing survives a failed insert.
func (s *Service) Create(ctx context.Context, in CreateInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	var created Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ids := make([]int64, 0, len(in.Lines))
		for _, line := range in.Lines {
			ids = append(ids, line.AccountID)
		}
		states, err := tx.AccountStates(ctx, in.OrgID, ids)
		if err != nil {
			return err
		}
		for _, line := range in.Lines {
			active, ok := states[line.AccountID]
			if !ok {
				return ledgershared.ErrAccountNotFound
			}
			if !active {
				return ledgershared.ErrAccountInactive
			}
		}
		created, err = tx.InsertEntry(ctx, in, StatusDraft)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, created.ID, in.Lines); err != nil {
			return err
		}
		if in.SourceModule != "" {
			if err := tx.LinkSource(ctx, in.OrgID, in.SourceModule, in.SourceRef, created.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.recordAudit(ctx, in.OrgID, in.CreatedBy, "journal.create", created.ID, map[string]any{"lines": len(in.Lines)})
	return s.repo.Get(ctx, in.OrgID, created.ID)
}

// Submit moves a DRAFT entry into PENDING_APPROVAL.
func (s *Service) Submit(ctx context.Context, orgID, entryID, actorID int64) (Entry, error) {
	return s.transition(ctx, orgID, entryID, actorID, ActionSubmit)
}

// Approve stamps the approver on a DRAFT or PENDING_APPROVAL entry.
func (s *Service) Approve(ctx context.Context, orgID, entryID, actorID int64) (Entry, error) {
	return s.transition(ctx, orgID, entryID, actorID, ActionApprove)
}

// Reject returns the entry to DRAFT for correction.
func (s *Service) Reject(ctx context.Context, orgID, entryID, actorID int64) (Entry, error) {
	return s.transition(ctx, orgID, entryID, actorID, ActionReject)
}

// Post makes an APPROVED entry immutable and visible to reports.
func (s *Service) Post(ctx context.Context, orgID, entryID, actorID int64) (Entry, error) {
	entry, err := s.transition(ctx, orgID, entryID, actorID, ActionPost)
	if err != nil {
		return Entry{}, err
	}
	if s.bumper != nil {
		if err := s.bumper.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	return entry, nil
}

func (s *Service) transition(ctx context.Context, orgID, entryID, actorID int64, action TransitionAction) (Entry, error) {
	var target EntryStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, orgID, entryID)
		if err != nil {
			return err
		}
		target, err = nextStatus(entry.Status, action)
		if err != nil {
			return err
		}
		return tx.TransitionStatus(ctx, orgID, entryID, entry.Status, target, actorID)
	})
	if err != nil {
		return Entry{}, err
	}
	s.recordAudit(ctx, orgID, actorID, "journal."+string(action), entryID, map[string]any{"status": string(target)})
	return s.repo.Get(ctx, orgID, entryID)
}

// Reverse creates a balanced counter-entry against a POSTED original and
// marks the original REVERSED. The counter-entry is posted immediately.
func (s *Service) Reverse(ctx context.Context, in ReverseInput) (Entry, error) {
	if in.OrgID == 0 || in.EntryID == 0 {
		return Entry{}, internalshared.Validation("ledger: org and entry required")
	}
	var reversal Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, in.OrgID, in.EntryID)
		if err != nil {
			return err
		}
		if original.Status != StatusPosted {
			return internalshared.State(fmt.Sprintf("ledger: cannot reverse entry in status %s", original.Status))
		}
		lines, err := tx.GetLines(ctx, original.ID)
		if err != nil {
			return err
		}
		memo := in.Memo
		if memo == "" {
			memo = fmt.Sprintf("Reversal of JE %d", original.Number)
		}
		date := s.now()
		if in.Date != nil {
			date = *in.Date
		}
		reversal, err = tx.InsertEntry(ctx, CreateInput{
			OrgID:     in.OrgID,
			Date:      date,
			Memo:      memo,
			CreatedBy: in.ActorID,
		}, StatusPosted)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, reversal.ID, reverseLines(lines)); err != nil {
			return err
		}
		return tx.TransitionStatus(ctx, in.OrgID, original.ID, StatusPosted, StatusReversed, in.ActorID)
	})
	if err != nil {
		return Entry{}, err
	}
	if s.bumper != nil {
		if err := s.bumper.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	s.recordAudit(ctx, in.OrgID, in.ActorID, "journal.reverse", in.EntryID, map[string]any{"reversal_id": reversal.ID})
	return s.repo.Get(ctx, in.OrgID, reversal.ID)
}

// reverseLines swaps each line's debit and credit amounts.
func reverseLines(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID:    line.AccountID,
			Debit:        line.Credit,
			Credit:       line.Debit,
			Memo:         line.Memo,
			DepartmentID: line.DimDepartmentID,
		})
	}
	return out
}

// Get loads an entry with its lines.
func (s *Service) Get(ctx context.Context, orgID, id int64) (Entry, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns the org's entries, newest first.
func (s *Service) List(ctx context.Context, orgID int64) ([]Entry, error) {
	return s.repo.List(ctx, orgID)
}

func (s *Service) recordAudit(ctx context.Context, orgID, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		OrgID:    orgID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}
