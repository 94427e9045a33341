package reports

import (
	"sort"
	"time"
)

// TrialBalanceRow is one account line in the trial balance.
type TrialBalanceRow struct {
	AccountID      int64   `json:"account_id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Classification string  `json:"classification"`
	Debit          float64 `json:"debit"`
	Credit         float64 `json:"credit"`
}

// TrialBalance lists every account with posted activity and proves the
// ledger closure: total debits equal total credits.
type TrialBalance struct {
	AsOf        time.Time         `json:"as_of"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  float64           `json:"total_debit"`
	TotalCredit float64           `json:"total_credit"`
}

// BuildTrialBalance folds activity into per-account net columns. Each net
// lands on a single side: a net debit row carries zero credit and vice versa.
func BuildTrialBalance(asOf time.Time, activity []AccountActivity) TrialBalance {
	tb := TrialBalance{AsOf: asOf}
	for _, acc := range activity {
		if acc.Debit == 0 && acc.Credit == 0 {
			continue
		}
		row := TrialBalanceRow{
			AccountID:      acc.AccountID,
			Code:           acc.Code,
			Name:           acc.Name,
			Classification: string(acc.Classification),
		}
		if net := acc.net(); net >= 0 {
			row.Debit = net
		} else {
			row.Credit = -net
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit += row.Debit
		tb.TotalCredit += row.Credit
	}
	sort.Slice(tb.Rows, func(i, j int) bool { return tb.Rows[i].Code < tb.Rows[j].Code })
	return tb
}
