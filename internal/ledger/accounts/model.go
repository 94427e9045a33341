package accounts

import "time"

// Classification enumerates CoA categories.
type Classification string

const (
	ClassAsset     Classification = "ASSET"
	ClassLiability Classification = "LIABILITY"
	ClassEquity    Classification = "EQUITY"
	ClassRevenue   Classification = "REVENUE"
	ClassExpense   Classification = "EXPENSE"
)

// NormalBalance marks the side on which an account naturally increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// Account models a chart of accounts node.
type Account struct {
	ID             int64
	OrgID          int64
	Code           string
	Name           string
	Classification Classification
	NormalBalance  NormalBalance
	ParentID       *int64
	IsCash         bool
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultNormalBalance returns the conventional polarity for a classification.
func DefaultNormalBalance(c Classification) NormalBalance {
	switch c {
	case ClassAsset, ClassExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}
