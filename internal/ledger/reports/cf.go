package reports

import (
	"sort"
	"time"
)

// CashFlowLine shows one cash account's movement over the period.
type CashFlowLine struct {
	AccountID int64   `json:"account_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Inflow    float64 `json:"inflow"`
	Outflow   float64 `json:"outflow"`
	Net       float64 `json:"net"`
}

// CashFlow reports the net movement across accounts flagged as cash.
type CashFlow struct {
	From      time.Time      `json:"from"`
	To        time.Time      `json:"to"`
	Lines     []CashFlowLine `json:"lines"`
	NetChange float64        `json:"net_change"`
}

// BuildCashFlow folds period activity on cash-flagged accounts. Debits to a
// cash account are inflows, credits outflows.
func BuildCashFlow(from, to time.Time, activity []AccountActivity) CashFlow {
	cf := CashFlow{From: from, To: to}
	for _, acc := range activity {
		if !acc.IsCash {
			continue
		}
		line := CashFlowLine{
			AccountID: acc.AccountID,
			Code:      acc.Code,
			Name:      acc.Name,
			Inflow:    acc.Debit,
			Outflow:   acc.Credit,
			Net:       acc.Debit - acc.Credit,
		}
		cf.Lines = append(cf.Lines, line)
		cf.NetChange += line.Net
	}
	sort.Slice(cf.Lines, func(i, j int) bool { return cf.Lines[i].Code < cf.Lines[j].Code })
	return cf
}
