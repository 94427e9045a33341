package reports

import (
	"sort"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
)

// StatementLine is one account line inside a statement section.
type StatementLine struct {
	AccountID int64   `json:"account_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
}

// StatementSection groups lines under a label with a running total.
type StatementSection struct {
	Label string          `json:"label"`
	Lines []StatementLine `json:"lines"`
	Total float64         `json:"total"`
}

// IncomeStatement summarises revenue against expenses over a period.
type IncomeStatement struct {
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	Revenue   StatementSection `json:"revenue"`
	Expenses  StatementSection `json:"expenses"`
	NetIncome float64          `json:"net_income"`
}

// BuildIncomeStatement folds period activity into revenue and expense
// sections. Revenue reads credit-normal, expenses debit-normal.
func BuildIncomeStatement(from, to time.Time, activity []AccountActivity) IncomeStatement {
	is := IncomeStatement{
		From:     from,
		To:       to,
		Revenue:  StatementSection{Label: "Revenue"},
		Expenses: StatementSection{Label: "Expenses"},
	}
	for _, acc := range activity {
		switch acc.Classification {
		case accounts.ClassRevenue:
			line := StatementLine{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Amount: acc.Credit - acc.Debit}
			is.Revenue.Lines = append(is.Revenue.Lines, line)
			is.Revenue.Total += line.Amount
		case accounts.ClassExpense:
			line := StatementLine{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Amount: acc.Debit - acc.Credit}
			is.Expenses.Lines = append(is.Expenses.Lines, line)
			is.Expenses.Total += line.Amount
		}
	}
	sortSection(&is.Revenue)
	sortSection(&is.Expenses)
	is.NetIncome = is.Revenue.Total - is.Expenses.Total
	return is
}

func sortSection(section *StatementSection) {
	sort.Slice(section.Lines, func(i, j int) bool { return section.Lines[i].Code < section.Lines[j].Code })
}
