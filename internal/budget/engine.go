package budget

import (
	"math"
	"time"
)

// Classify compares actual spend against a budgeted amount. Actuals more
// than ten percent above the budget are over, more than ten percent below
// are under, anything in between is on track.
func Classify(budgeted, actual float64) VarianceStatus {
	switch {
	case actual > budgeted*1.10:
		return StatusOver
	case actual < budgeted*0.90:
		return StatusUnder
	default:
		return StatusOnTrack
	}
}

// ComputeVariance merges budget lines with actuals into report rows. Accounts
// with actuals but no budget line appear with a zero budget. Variance is
// budgeted minus actual; the percentage is zero when nothing was budgeted.
func ComputeVariance(lines []BudgetLine, actuals []ActualRow) []VarianceRow {
	byAccount := make(map[int64]*VarianceRow, len(lines))
	order := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := byAccount[line.AccountID]; !ok {
			byAccount[line.AccountID] = &VarianceRow{AccountID: line.AccountID}
			order = append(order, line.AccountID)
		}
		byAccount[line.AccountID].Budgeted += line.Total
	}
	for _, actual := range actuals {
		row, ok := byAccount[actual.AccountID]
		if !ok {
			row = &VarianceRow{AccountID: actual.AccountID}
			byAccount[actual.AccountID] = row
			order = append(order, actual.AccountID)
		}
		row.Code = actual.Code
		row.Name = actual.Name
		row.Actual += actual.Amount
	}
	rows := make([]VarianceRow, 0, len(order))
	for _, id := range order {
		row := byAccount[id]
		row.Budgeted = round2(row.Budgeted)
		row.Actual = round2(row.Actual)
		row.Variance = round2(row.Budgeted - row.Actual)
		if row.Budgeted != 0 {
			row.VariancePct = round2((row.Variance / row.Budgeted) * 100)
		}
		row.Status = Classify(row.Budgeted, row.Actual)
		rows = append(rows, *row)
	}
	return rows
}

// trendMonths is the length of the trailing spend trend.
const trendMonths = 6

// BuildSpendTrend fills the trailing six calendar months ending at asOf,
// oldest first, zero-filling months with no spend.
func BuildSpendTrend(asOf time.Time, rows []MonthlySpend) []MonthlySpend {
	byMonth := make(map[string]float64, len(rows))
	for _, row := range rows {
		byMonth[row.Month] += row.Amount
	}
	trend := make([]MonthlySpend, 0, trendMonths)
	start := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)
	for i := 0; i < trendMonths; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		trend = append(trend, MonthlySpend{Month: month, Amount: round2(byMonth[month])})
	}
	return trend
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
