package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
)

// Service assembles statements, caching payloads behind the versioned cache
// and collapsing concurrent builds with singleflight.
type Service struct {
	logger *slog.Logger
	repo   Repository
	cache  *cache.Cache
	group  singleflight.Group
}

// NewService builds the report service.
func NewService(logger *slog.Logger, repo Repository, reportCache *cache.Cache) *Service {
	return &Service{logger: logger, repo: repo, cache: reportCache}
}

// TrialBalance builds the trial balance as of a date.
func (s *Service) TrialBalance(ctx context.Context, orgID int64, asOf time.Time) (TrialBalance, error) {
	var tb TrialBalance
	err := s.cached(ctx, keyParts("tb", orgID, time.Time{}, asOf), &tb, func(ctx context.Context) (any, error) {
		activity, err := s.repo.Activity(ctx, orgID, time.Time{}, asOf)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(asOf, activity), nil
	})
	return tb, err
}

// IncomeStatement builds the P&L over a period.
func (s *Service) IncomeStatement(ctx context.Context, orgID int64, from, to time.Time) (IncomeStatement, error) {
	var is IncomeStatement
	err := s.cached(ctx, keyParts("is", orgID, from, to), &is, func(ctx context.Context) (any, error) {
		activity, err := s.repo.Activity(ctx, orgID, from, to)
		if err != nil {
			return nil, err
		}
		return BuildIncomeStatement(from, to, activity), nil
	})
	return is, err
}

// BalanceSheet builds financial position as of a date.
func (s *Service) BalanceSheet(ctx context.Context, orgID int64, asOf time.Time) (BalanceSheet, error) {
	var bs BalanceSheet
	err := s.cached(ctx, keyParts("bs", orgID, time.Time{}, asOf), &bs, func(ctx context.Context) (any, error) {
		activity, err := s.repo.Activity(ctx, orgID, time.Time{}, asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(asOf, activity), nil
	})
	return bs, err
}

// CashFlow builds the cash movement statement over a period.
func (s *Service) CashFlow(ctx context.Context, orgID int64, from, to time.Time) (CashFlow, error) {
	var cf CashFlow
	err := s.cached(ctx, keyParts("cf", orgID, from, to), &cf, func(ctx context.Context) (any, error) {
		activity, err := s.repo.Activity(ctx, orgID, from, to)
		if err != nil {
			return nil, err
		}
		return BuildCashFlow(from, to, activity), nil
	})
	return cf, err
}

// Warm pre-builds the as-of-today statements for an org, used by the
// background warmup job.
func (s *Service) Warm(ctx context.Context, orgID int64) error {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.TrialBalance(ctx, orgID, now); err != nil {
		return err
	}
	if _, err := s.BalanceSheet(ctx, orgID, now); err != nil {
		return err
	}
	if _, err := s.IncomeStatement(ctx, orgID, monthStart, now); err != nil {
		return err
	}
	_, err := s.CashFlow(ctx, orgID, monthStart, now)
	return err
}

func (s *Service) cached(ctx context.Context, parts []string, dest any, build func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache key", slog.Any("error", err))
		value, err := build(ctx)
		if err != nil {
			return err
		}
		return assign(value, dest)
	}
	return s.cache.FetchJSON(ctx, key, dest, func(ctx context.Context) (any, error) {
		result := s.group.DoChan(key, func() (any, error) {
			return build(ctx)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-result:
			return res.Val, res.Err
		}
	})
}

func keyParts(report string, orgID int64, from, to time.Time) []string {
	fromPart := "origin"
	if !from.IsZero() {
		fromPart = from.Format("2006-01-02")
	}
	return []string{"reports", report, fmt.Sprintf("%d", orgID), fromPart, to.Format("2006-01-02")}
}

func assign(value, dest any) error {
	switch d := dest.(type) {
	case *TrialBalance:
		v, ok := value.(TrialBalance)
		if !ok {
			return fmt.Errorf("reports: unexpected payload %T", value)
		}
		*d = v
	case *IncomeStatement:
		v, ok := value.(IncomeStatement)
		if !ok {
			return fmt.Errorf("reports: unexpected payload %T", value)
		}
		*d = v
	case *BalanceSheet:
		v, ok := value.(BalanceSheet)
		if !ok {
			return fmt.Errorf("reports: unexpected payload %T", value)
		}
		*d = v
	case *CashFlow:
		v, ok := value.(CashFlow)
		if !ok {
			return fmt.Errorf("reports: unexpected payload %T", value)
		}
		*d = v
	default:
		return fmt.Errorf("reports: unsupported destination %T", dest)
	}
	return nil
}
