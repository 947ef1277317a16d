package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Terms are the investor's accepted terms for one template. They are built
// only from validated input and never modified afterwards.
type Terms struct {
	Template     Template        `json:"template"`
	Amount       decimal.Decimal `json:"amount"`
	Term         string          `json:"term"`
	TargetAPY    decimal.Decimal `json:"targetAPY"`
	SpecialTerms string          `json:"specialTerms,omitempty"`
	Investor     string          `json:"investor"`
	Network      string          `json:"network"` // 0x-hex chain id
	CreatedAt    time.Time       `json:"createdAt"`
}

// ExpectedReturn is principal × (1 + APY/100).
func ExpectedReturn(principal, apy decimal.Decimal) decimal.Decimal {
	return principal.Mul(decimal.NewFromInt(1).Add(apy.Div(decimal.NewFromInt(100))))
}

// Maturity returns the date the terms mature when started at start.
func (t Terms) Maturity(start time.Time) (time.Time, error) {
	months, err := TermMonths(t.Term)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, months, 0), nil
}
