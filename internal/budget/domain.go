// Package budget stores departmental spending plans and measures posted
// actuals against them, per fiscal year with quarterly granularity.
package budget

import "time"

// Department groups spend for budgeting and KPI aggregation.
type Department struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	Name      string    `json:"name"`
	Headcount int       `json:"headcount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Budget is one department's plan for one fiscal year.
type Budget struct {
	ID           int64        `json:"id"`
	OrgID        int64        `json:"org_id"`
	DepartmentID int64        `json:"department_id"`
	FiscalYear   int          `json:"fiscal_year"`
	CreatedBy    int64        `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Lines        []BudgetLine `json:"lines"`
}

// BudgetLine plans one account's spend across the four quarters.
// Total is always the sum of the quarters.
type BudgetLine struct {
	ID        int64   `json:"id"`
	BudgetID  int64   `json:"budget_id"`
	AccountID int64   `json:"account_id"`
	Q1        float64 `json:"q1"`
	Q2        float64 `json:"q2"`
	Q3        float64 `json:"q3"`
	Q4        float64 `json:"q4"`
	Total     float64 `json:"total"`
}

// VarianceStatus classifies actual-versus-budget drift.
type VarianceStatus string

const (
	StatusOnTrack VarianceStatus = "on_track"
	StatusOver    VarianceStatus = "over"
	StatusUnder   VarianceStatus = "under"
)

// VarianceRow is one account's comparison of plan against actuals.
// Variance is budgeted minus actual, so overspend is negative.
type VarianceRow struct {
	AccountID   int64          `json:"account_id"`
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	Budgeted    float64        `json:"budgeted"`
	Actual      float64        `json:"actual"`
	Variance    float64        `json:"variance"`
	VariancePct float64        `json:"variance_pct"`
	Status      VarianceStatus `json:"status"`
}

// VarianceReport compares a whole budget against posted actuals.
type VarianceReport struct {
	BudgetID      int64         `json:"budget_id"`
	DepartmentID  int64         `json:"department_id"`
	FiscalYear    int           `json:"fiscal_year"`
	Rows          []VarianceRow `json:"rows"`
	TotalBudgeted float64       `json:"total_budgeted"`
	TotalActual   float64       `json:"total_actual"`
	TotalVariance float64       `json:"total_variance"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// ActualRow is posted spend aggregated per account, signed toward the
// account's normal side.
type ActualRow struct {
	AccountID int64
	Code      string
	Name      string
	Amount    float64
}

// MonthlySpend is one calendar month's posted spend. Month is YYYY-MM.
type MonthlySpend struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// DepartmentKPIs aggregates a department's budget health for one year.
type DepartmentKPIs struct {
	DepartmentID    int64          `json:"department_id"`
	DepartmentName  string         `json:"department_name"`
	FiscalYear      int            `json:"fiscal_year"`
	Headcount       int            `json:"headcount"`
	TotalBudgeted   float64        `json:"total_budgeted"`
	TotalSpent      float64        `json:"total_spent"`
	Utilization     float64        `json:"utilization"`
	CostPerEmployee float64        `json:"cost_per_employee"`
	SpendTrend      []MonthlySpend `json:"spend_trend"`
	GeneratedAt     time.Time      `json:"generated_at"`
}
