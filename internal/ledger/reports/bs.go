package reports

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
)

// BalanceSheet states financial position as of a date. Equity carries the
// cumulative net income of revenue and expense activity so the accounting
// equation holds without a closing entry.
type BalanceSheet struct {
	AsOf                      time.Time        `json:"as_of"`
	Assets                    StatementSection `json:"assets"`
	Liabilities               StatementSection `json:"liabilities"`
	Equity                    StatementSection `json:"equity"`
	RetainedEarnings          float64          `json:"retained_earnings"`
	TotalAssets               float64          `json:"total_assets"`
	TotalLiabilitiesAndEquity float64          `json:"total_liabilities_and_equity"`
}

// BuildBalanceSheet aggregates life-to-date activity into the three position
// sections and folds unclosed P&L into retained earnings.
func BuildBalanceSheet(asOf time.Time, activity []AccountActivity) BalanceSheet {
	bs := BalanceSheet{
		AsOf:        asOf,
		Assets:      StatementSection{Label: "Assets"},
		Liabilities: StatementSection{Label: "Liabilities"},
		Equity:      StatementSection{Label: "Equity"},
	}
	var netIncome float64
	for _, acc := range activity {
		switch acc.Classification {
		case accounts.ClassAsset:
			line := StatementLine{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Amount: acc.net()}
			bs.Assets.Lines = append(bs.Assets.Lines, line)
			bs.Assets.Total += line.Amount
		case accounts.ClassLiability:
			line := StatementLine{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Amount: acc.Credit - acc.Debit}
			bs.Liabilities.Lines = append(bs.Liabilities.Lines, line)
			bs.Liabilities.Total += line.Amount
		case accounts.ClassEquity:
			line := StatementLine{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Amount: acc.Credit - acc.Debit}
			bs.Equity.Lines = append(bs.Equity.Lines, line)
			bs.Equity.Total += line.Amount
		case accounts.ClassRevenue:
			netIncome += acc.Credit - acc.Debit
		case accounts.ClassExpense:
			netIncome -= acc.Debit - acc.Credit
		}
	}
	sortSection(&bs.Assets)
	sortSection(&bs.Liabilities)
	sortSection(&bs.Equity)
	bs.RetainedEarnings = netIncome
	bs.TotalAssets = bs.Assets.Total
	bs.TotalLiabilitiesAndEquity = bs.Liabilities.Total + bs.Equity.Total + bs.RetainedEarnings
	return bs
}
