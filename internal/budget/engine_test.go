package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyTenPercentBand(t *testing.T) {
	cases := []struct {
		name     string
		budgeted float64
		actual   float64
		want     VarianceStatus
	}{
		{"exactly on budget", 1000, 1000, StatusOnTrack},
		{"upper band edge", 1000, 1100, StatusOnTrack},
		{"just over band", 1000, 1100.01, StatusOver},
		{"lower band edge", 1000, 900, StatusOnTrack},
		{"just under band", 1000, 899.99, StatusUnder},
		{"far over", 1000, 1500, StatusOver},
		{"nothing spent", 1000, 0, StatusUnder},
		{"zero budget zero actual", 0, 0, StatusOnTrack},
		{"zero budget with spend", 0, 50, StatusOver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.budgeted, tc.actual))
		})
	}
}

func TestComputeVarianceOverspendIsNegative(t *testing.T) {
	rows := ComputeVariance(
		[]BudgetLine{{AccountID: 1, Total: 10000}},
		[]ActualRow{{AccountID: 1, Code: "5000", Name: "Rent", Amount: 11500}},
	)
	require.Len(t, rows, 1)
	require.Equal(t, -1500.0, rows[0].Variance)
	require.Equal(t, -15.0, rows[0].VariancePct)
	require.Equal(t, StatusOver, rows[0].Status)
}

func TestComputeVarianceMergesLinesAndActuals(t *testing.T) {
	lines := []BudgetLine{
		{AccountID: 1, Total: 1000},
		{AccountID: 2, Total: 500},
		{AccountID: 3, Total: 200},
	}
	actuals := []ActualRow{
		{AccountID: 1, Code: "5000", Name: "Rent", Amount: 1050},
		{AccountID: 2, Code: "5100", Name: "Travel", Amount: 700},
		{AccountID: 4, Code: "5300", Name: "Software", Amount: 90},
	}
	rows := ComputeVariance(lines, actuals)
	require.Len(t, rows, 4)

	byAccount := make(map[int64]VarianceRow)
	for _, row := range rows {
		byAccount[row.AccountID] = row
	}

	require.Equal(t, StatusOnTrack, byAccount[1].Status)
	require.Equal(t, -50.0, byAccount[1].Variance)
	require.Equal(t, -5.0, byAccount[1].VariancePct)

	require.Equal(t, StatusOver, byAccount[2].Status)
	require.Equal(t, -200.0, byAccount[2].Variance)
	require.Equal(t, -40.0, byAccount[2].VariancePct)

	// Budgeted but untouched.
	require.Equal(t, StatusUnder, byAccount[3].Status)
	require.Equal(t, 200.0, byAccount[3].Variance)
	require.Equal(t, 100.0, byAccount[3].VariancePct)

	// Unplanned spend surfaces with zero budget and zero percentage.
	require.Equal(t, StatusOver, byAccount[4].Status)
	require.Equal(t, 0.0, byAccount[4].Budgeted)
	require.Equal(t, 90.0, byAccount[4].Actual)
	require.Equal(t, 0.0, byAccount[4].VariancePct)
}

func TestBuildSpendTrendFillsSixMonths(t *testing.T) {
	asOf := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	trend := BuildSpendTrend(asOf, []MonthlySpend{
		{Month: "2026-04", Amount: 120.5},
		{Month: "2026-08", Amount: 300},
	})
	require.Len(t, trend, 6)
	require.Equal(t, "2026-03", trend[0].Month)
	require.Equal(t, "2026-08", trend[5].Month)
	require.Equal(t, 0.0, trend[0].Amount)
	require.Equal(t, 120.5, trend[1].Amount)
	require.Equal(t, 300.0, trend[5].Amount)
}

func TestBuildSpendTrendCrossesYearBoundary(t *testing.T) {
	asOf := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	trend := BuildSpendTrend(asOf, nil)
	require.Equal(t, "2025-09", trend[0].Month)
	require.Equal(t, "2026-02", trend[5].Month)
}
