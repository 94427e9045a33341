package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
)

func sampleActivity() []AccountActivity {
	return []AccountActivity{
		{AccountID: 1, Code: "1000", Name: "Cash", Classification: accounts.ClassAsset, NormalBalance: accounts.NormalDebit, IsCash: true, Debit: 1200, Credit: 300},
		{AccountID: 2, Code: "1100", Name: "Accounts Receivable", Classification: accounts.ClassAsset, NormalBalance: accounts.NormalDebit, Debit: 500, Credit: 200},
		{AccountID: 3, Code: "2000", Name: "Accounts Payable", Classification: accounts.ClassLiability, NormalBalance: accounts.NormalCredit, Debit: 100, Credit: 400},
		{AccountID: 4, Code: "3000", Name: "Share Capital", Classification: accounts.ClassEquity, NormalBalance: accounts.NormalCredit, Credit: 500},
		{AccountID: 5, Code: "4000", Name: "Sales", Classification: accounts.ClassRevenue, NormalBalance: accounts.NormalCredit, Credit: 700},
		{AccountID: 6, Code: "5000", Name: "Rent", Classification: accounts.ClassExpense, NormalBalance: accounts.NormalDebit, Debit: 300},
	}
}

func TestBuildTrialBalanceClosure(t *testing.T) {
	tb := BuildTrialBalance(time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), sampleActivity())

	require.InDelta(t, tb.TotalDebit, tb.TotalCredit, 0.001, "trial balance must close")
	require.Len(t, tb.Rows, 6)
	// Rows sorted by code, each net on one side only.
	require.Equal(t, "1000", tb.Rows[0].Code)
	for _, row := range tb.Rows {
		require.False(t, row.Debit > 0 && row.Credit > 0, "row %s on both sides", row.Code)
	}
	require.Equal(t, 900.0, tb.Rows[0].Debit)
	require.Equal(t, 300.0, tb.Rows[2].Credit)
}

func TestBuildTrialBalanceSkipsIdleAccounts(t *testing.T) {
	activity := append(sampleActivity(), AccountActivity{AccountID: 9, Code: "9999", Name: "Dormant", Classification: accounts.ClassAsset})
	tb := BuildTrialBalance(time.Now(), activity)
	require.Len(t, tb.Rows, 6)
}

func TestBuildIncomeStatement(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	is := BuildIncomeStatement(from, to, sampleActivity())

	require.Equal(t, 700.0, is.Revenue.Total)
	require.Equal(t, 300.0, is.Expenses.Total)
	require.Equal(t, 400.0, is.NetIncome)
	require.Len(t, is.Revenue.Lines, 1)
	require.Len(t, is.Expenses.Lines, 1)
}

func TestBuildBalanceSheetEquationHolds(t *testing.T) {
	bs := BuildBalanceSheet(time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), sampleActivity())

	require.Equal(t, 1200.0, bs.TotalAssets)
	require.Equal(t, 300.0, bs.Liabilities.Total)
	require.Equal(t, 500.0, bs.Equity.Total)
	require.Equal(t, 400.0, bs.RetainedEarnings)
	require.InDelta(t, bs.TotalAssets, bs.TotalLiabilitiesAndEquity, 0.001, "accounting equation must hold")
}

func TestBuildCashFlow(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	cf := BuildCashFlow(from, to, sampleActivity())

	require.Len(t, cf.Lines, 1)
	require.Equal(t, "1000", cf.Lines[0].Code)
	require.Equal(t, 1200.0, cf.Lines[0].Inflow)
	require.Equal(t, 300.0, cf.Lines[0].Outflow)
	require.Equal(t, 900.0, cf.NetChange)
}
