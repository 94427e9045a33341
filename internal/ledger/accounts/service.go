package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort records account mutations.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// Service owns chart-of-accounts consistency.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput carries fields for a new account.
type CreateInput struct {
	OrgID          int64
	Code           string
	Name           string
	Classification Classification
	NormalBalance  NormalBalance
	ParentID       *int64
	IsCash         bool
	ActorID        int64
}

// Validate ensures the input is well formed.
func (in CreateInput) Validate() error {
	if in.OrgID == 0 {
		return internalshared.Validation("ledger: org required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return internalshared.Validation("ledger: account code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return internalshared.Validation("ledger: account name required")
	}
	switch in.Classification {
	case ClassAsset, ClassLiability, ClassEquity, ClassRevenue, ClassExpense:
	default:
		return internalshared.Validation(fmt.Sprintf("ledger: unknown classification %q", in.Classification))
	}
	switch in.NormalBalance {
	case "", NormalDebit, NormalCredit:
	default:
		return internalshared.Validation(fmt.Sprintf("ledger: unknown normal balance %q", in.NormalBalance))
	}
	return nil
}

// Create inserts a new account, defaulting the normal balance from the
// classification when the caller leaves it empty.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	normal := in.NormalBalance
	if normal == "" {
		normal = DefaultNormalBalance(in.Classification)
	}
	if in.ParentID != nil {
		if _, err := s.repo.Get(ctx, in.OrgID, *in.ParentID); err != nil {
			return Account{}, ledgershared.ErrParentNotFound
		}
	}
	created, err := s.repo.Insert(ctx, Account{
		OrgID:          in.OrgID,
		Code:           strings.TrimSpace(in.Code),
		Name:           strings.TrimSpace(in.Name),
		Classification: in.Classification,
		NormalBalance:  normal,
		ParentID:       in.ParentID,
		IsCash:         in.IsCash,
		IsActive:       true,
	})
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			OrgID:    in.OrgID,
			ActorID:  in.ActorID,
			Action:   "account.create",
			Entity:   "gl_account",
			EntityID: fmt.Sprintf("%d", created.ID),
			Meta:     map[string]any{"code": created.Code},
			At:       s.now(),
		})
	}
	return created, nil
}

// Reparent moves an account beneath a new parent, refusing cycles.
func (s *Service) Reparent(ctx context.Context, orgID, accountID int64, parentID *int64) (Account, error) {
	acct, err := s.repo.Get(ctx, orgID, accountID)
	if err != nil {
		return Account{}, err
	}
	all, err := s.repo.List(ctx, orgID)
	if err != nil {
		return Account{}, err
	}
	if err := ValidateParent(all, accountID, parentID); err != nil {
		return Account{}, err
	}
	acct.ParentID = parentID
	return s.repo.Update(ctx, acct)
}

// Deactivate hides the account from future postings without deleting history.
func (s *Service) Deactivate(ctx context.Context, orgID, id int64) error {
	return s.repo.SetActive(ctx, orgID, id, false)
}

// List returns the org's full chart of accounts ordered by code.
func (s *Service) List(ctx context.Context, orgID int64) ([]Account, error) {
	return s.repo.List(ctx, orgID)
}

// RolledBalance pairs an account with its aggregated balance.
type RolledBalance struct {
	Account Account `json:"account"`
	Balance float64 `json:"balance"`
}

// Balances returns each account's posted balance including all descendants,
// signed toward the account's normal side.
func (s *Service) Balances(ctx context.Context, orgID int64) ([]RolledBalance, error) {
	accts, err := s.repo.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	own, err := s.repo.OwnBalances(ctx, orgID)
	if err != nil {
		return nil, err
	}
	totals, err := Rollup(accts, own)
	if err != nil {
		return nil, err
	}
	out := make([]RolledBalance, 0, len(accts))
	for _, a := range accts {
		net := totals[a.ID]
		if a.NormalBalance == NormalCredit {
			net = -net
		}
		out = append(out, RolledBalance{Account: a, Balance: net})
	}
	return out, nil
}
