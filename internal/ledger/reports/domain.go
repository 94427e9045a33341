// Package reports builds financial statements from posted ledger activity.
package reports

import "github.com/meridian-erp/meridian-erp/internal/ledger/accounts"

// AccountActivity models one account's aggregated posted debits and credits
// over a reporting window.
type AccountActivity struct {
	AccountID      int64
	Code           string
	Name           string
	Classification accounts.Classification
	NormalBalance  accounts.NormalBalance
	IsCash         bool
	Debit          float64
	Credit         float64
}

// net returns debit minus credit.
func (a AccountActivity) net() float64 {
	return a.Debit - a.Credit
}

// naturalBalance signs the net toward the account's normal side.
func (a AccountActivity) naturalBalance() float64 {
	if a.NormalBalance == accounts.NormalCredit {
		return a.Credit - a.Debit
	}
	return a.net()
}
