package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service handles department planning, variance reporting, and KPIs.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// DepartmentInput groups fields for a new department.
type DepartmentInput struct {
	OrgID     int64
	Name      string
	Headcount int
}

// CreateDepartment validates and stores a department.
func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (Department, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Department{}, shared.Validation("budget: department name required")
	}
	if in.Headcount < 0 {
		return Department{}, shared.Validation("budget: headcount cannot be negative")
	}
	return s.repo.CreateDepartment(ctx, Department{OrgID: in.OrgID, Name: strings.TrimSpace(in.Name), Headcount: in.Headcount})
}

// ListDepartments returns the org's departments.
func (s *Service) ListDepartments(ctx context.Context, orgID int64) ([]Department, error) {
	return s.repo.ListDepartments(ctx, orgID)
}

// LineInput plans one account's quarterly amounts.
type LineInput struct {
	AccountID int64
	Q1        float64
	Q2        float64
	Q3        float64
	Q4        float64
}

// CreateInput groups fields for a new budget.
type CreateInput struct {
	OrgID        int64
	DepartmentID int64
	FiscalYear   int
	Lines        []LineInput
	CreatedBy    int64
}

// Create validates and stores a budget with its lines. Each line's total is
// derived from the quarters, never taken from the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (Budget, error) {
	if in.FiscalYear < 2000 || in.FiscalYear > 2100 {
		return Budget{}, shared.Validation("budget: fiscal year out of range")
	}
	if len(in.Lines) == 0 {
		return Budget{}, shared.Validation("budget: at least one line required")
	}
	if _, err := s.repo.GetDepartment(ctx, in.OrgID, in.DepartmentID); err != nil {
		return Budget{}, err
	}
	seen := make(map[int64]bool, len(in.Lines))
	b := Budget{
		OrgID:        in.OrgID,
		DepartmentID: in.DepartmentID,
		FiscalYear:   in.FiscalYear,
		CreatedBy:    in.CreatedBy,
	}
	for i, line := range in.Lines {
		if line.AccountID == 0 {
			return Budget{}, shared.Validation(fmt.Sprintf("budget: line %d missing account", i))
		}
		if line.Q1 < 0 || line.Q2 < 0 || line.Q3 < 0 || line.Q4 < 0 {
			return Budget{}, shared.Validation(fmt.Sprintf("budget: line %d negative quarter amount", i))
		}
		if seen[line.AccountID] {
			return Budget{}, shared.Validation(fmt.Sprintf("budget: account %d planned twice", line.AccountID))
		}
		seen[line.AccountID] = true
		b.Lines = append(b.Lines, BudgetLine{
			AccountID: line.AccountID,
			Q1:        line.Q1,
			Q2:        line.Q2,
			Q3:        line.Q3,
			Q4:        line.Q4,
			Total:     round2(line.Q1 + line.Q2 + line.Q3 + line.Q4),
		})
	}
	return s.repo.CreateBudget(ctx, b)
}

// Get loads a budget with its lines.
func (s *Service) Get(ctx context.Context, orgID, id int64) (Budget, error) {
	return s.repo.GetBudget(ctx, orgID, id)
}

// List returns the org's budgets, newest fiscal year first.
func (s *Service) List(ctx context.Context, orgID int64) ([]Budget, error) {
	return s.repo.ListBudgets(ctx, orgID)
}

func fiscalYearWindow(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return from, to
}

// Variance compares the budget against the department's posted actuals for
// its fiscal year.
func (s *Service) Variance(ctx context.Context, orgID, budgetID int64) (VarianceReport, error) {
	b, err := s.repo.GetBudget(ctx, orgID, budgetID)
	if err != nil {
		return VarianceReport{}, err
	}
	from, to := fiscalYearWindow(b.FiscalYear)
	actuals, err := s.repo.DepartmentActuals(ctx, orgID, b.DepartmentID, from, to)
	if err != nil {
		return VarianceReport{}, err
	}
	report := VarianceReport{
		BudgetID:     b.ID,
		DepartmentID: b.DepartmentID,
		FiscalYear:   b.FiscalYear,
		Rows:         ComputeVariance(b.Lines, actuals),
		GeneratedAt:  s.now(),
	}
	for _, row := range report.Rows {
		report.TotalBudgeted += row.Budgeted
		report.TotalActual += row.Actual
	}
	report.TotalBudgeted = round2(report.TotalBudgeted)
	report.TotalActual = round2(report.TotalActual)
	report.TotalVariance = round2(report.TotalBudgeted - report.TotalActual)
	return report, nil
}

// DepartmentKPIs aggregates one department's budget health for a fiscal
// year: utilization against plan, spend per head, and a trailing six-month
// spend trend. A department without a budget for the year still reports its
// spend, with zero budget and utilization.
func (s *Service) DepartmentKPIs(ctx context.Context, orgID, departmentID int64, fiscalYear int) (DepartmentKPIs, error) {
	dept, err := s.repo.GetDepartment(ctx, orgID, departmentID)
	if err != nil {
		return DepartmentKPIs{}, err
	}
	kpis := DepartmentKPIs{
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		FiscalYear:     fiscalYear,
		Headcount:      dept.Headcount,
		GeneratedAt:    s.now(),
	}
	b, err := s.repo.GetBudgetByYear(ctx, orgID, departmentID, fiscalYear)
	switch {
	case err == nil:
		for _, line := range b.Lines {
			kpis.TotalBudgeted += line.Total
		}
		kpis.TotalBudgeted = round2(kpis.TotalBudgeted)
	case errors.Is(err, shared.ErrNotFound):
		// No plan for the year; spend and trend still apply.
	default:
		return DepartmentKPIs{}, err
	}

	from, to := fiscalYearWindow(fiscalYear)
	actuals, err := s.repo.DepartmentActuals(ctx, orgID, departmentID, from, to)
	if err != nil {
		return DepartmentKPIs{}, err
	}
	for _, row := range actuals {
		kpis.TotalSpent += row.Amount
	}
	kpis.TotalSpent = round2(kpis.TotalSpent)
	if kpis.TotalBudgeted != 0 {
		kpis.Utilization = round2(kpis.TotalSpent / kpis.TotalBudgeted * 100)
	}
	if dept.Headcount > 0 {
		kpis.CostPerEmployee = round2(kpis.TotalSpent / float64(dept.Headcount))
	}

	asOf := s.now()
	trendFrom := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)
	monthly, err := s.repo.MonthlySpend(ctx, orgID, departmentID, trendFrom, asOf)
	if err != nil {
		return DepartmentKPIs{}, err
	}
	kpis.SpendTrend = BuildSpendTrend(asOf, monthly)
	return kpis, nil
}

// SnapshotVariance stores the current report, used by the refresh job.
func (s *Service) SnapshotVariance(ctx context.Context, orgID, budgetID int64) error {
	report, err := s.Variance(ctx, orgID, budgetID)
	if err != nil {
		return err
	}
	return s.repo.SaveVarianceSnapshot(ctx, orgID, report)
}

// SnapshotAll refreshes snapshots for every budget in the org.
func (s *Service) SnapshotAll(ctx context.Context, orgID int64) error {
	budgets, err := s.repo.ListBudgets(ctx, orgID)
	if err != nil {
		return err
	}
	for _, b := range budgets {
		if err := s.SnapshotVariance(ctx, orgID, b.ID); err != nil {
			s.logger.Error("budget variance snapshot", slog.Any("error", err), slog.Int64("budget_id", b.ID))
			return err
		}
	}
	return nil
}
