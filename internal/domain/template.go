// Package domain holds the investment model shared by the API server and
// the terminal client.
package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrTemplateNotFound is returned by FindTemplate.
var ErrTemplateNotFound = errors.New("investment template not found")

// APYRange is the inclusive range of target APY a template accepts, in percent.
type APYRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether apy lies in [Min, Max].
func (r APYRange) Contains(apy decimal.Decimal) bool {
	return apy.GreaterThanOrEqual(r.Min) && apy.LessThanOrEqual(r.Max)
}

// Template is a read-only investment product. Amounts are in the chain's
// native currency.
type Template struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	ContractType   string          `json:"contractType"`
	MinAmount      decimal.Decimal `json:"minAmount"`
	MaxAmount      decimal.Decimal `json:"maxAmount"`
	TermsOptions   []string        `json:"termsOptions"`
	TargetAPYRange APYRange        `json:"targetAPYRange"`
	Features       []string        `json:"features"`
}

// AmountInRange reports whether amount lies in [MinAmount, MaxAmount].
func (t Template) AmountInRange(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(t.MinAmount) && amount.LessThanOrEqual(t.MaxAmount)
}

// HasTerm reports whether term is one of the template's options.
func (t Template) HasTerm(term string) bool {
	for _, o := range t.TermsOptions {
		if o == term {
			return true
		}
	}
	return false
}

// HasFeature reports whether the template advertises feature.
func (t Template) HasFeature(feature string) bool {
	for _, f := range t.Features {
		if strings.EqualFold(f, feature) {
			return true
		}
	}
	return false
}

// FindTemplate looks a template up by id.
func FindTemplate(templates []Template, id string) (Template, error) {
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// TermMonths parses term options such as "6 months" or "1 year".
func TermMonths(term string) (int, error) {
	fields := strings.Fields(strings.ToLower(term))
	if len(fields) != 2 {
		return 0, fmt.Errorf("invalid term %q", term)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid term %q", term)
	}
	switch strings.TrimSuffix(fields[1], "s") {
	case "month":
		return n, nil
	case "year":
		return n * 12, nil
	}
	return 0, fmt.Errorf("invalid term unit in %q", term)
}

// --- catalog ---

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultTemplates is the catalog served by /api/investment/templates.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID:           "infinity-prime-real-estate",
			Name:         "Prime Real Estate Fund",
			Description:  "Fractional exposure to income-producing commercial property in tier-one cities.",
			ContractType: "REAL_ESTATE",
			MinAmount:    d("0.01"),
			MaxAmount:    d("10"),
			TermsOptions: []string{"6 months", "12 months", "24 months"},
			TargetAPYRange: APYRange{
				Min: d("8.5"),
				Max: d("12"),
			},
			Features: []string{"Quarterly distributions", "Audited valuations", "SBT ownership receipt"},
		},
		{
			ID:           "infinity-growth-vault",
			Name:         "Infinity Growth Vault",
			Description:  "Fixed-rate private credit facility backed by diversified real-world collateral.",
			ContractType: "PRIVATE_CREDIT",
			MinAmount:    d("10"),
			MaxAmount:    d("100"),
			TermsOptions: []string{"12 months", "24 months"},
			TargetAPYRange: APYRange{
				Min: d("14.8"),
				Max: d("14.8"),
			},
			Features: []string{"Fixed APY", "Senior secured", "SBT ownership receipt"},
		},
		{
			ID:           "infinity-green-energy",
			Name:         "Green Energy Infrastructure",
			Description:  "Solar and wind projects with long-term power purchase agreements.",
			ContractType: "INFRASTRUCTURE",
			MinAmount:    d("0.05"),
			MaxAmount:    d("25"),
			TermsOptions: []string{"12 months", "36 months"},
			TargetAPYRange: APYRange{
				Min: d("9.2"),
				Max: d("11.5"),
			},
			Features: []string{"ESG certified", "Inflation linked", "SBT ownership receipt"},
		},
		{
			ID:           "infinity-trade-finance",
			Name:         "Trade Finance Notes",
			Description:  "Short-dated receivables financing for export businesses.",
			ContractType: "TRADE_FINANCE",
			MinAmount:    d("0.1"),
			MaxAmount:    d("50"),
			TermsOptions: []string{"3 months", "6 months", "1 year"},
			TargetAPYRange: APYRange{
				Min: d("6"),
				Max: d("8"),
			},
			Features: []string{"Short duration", "Credit insured"},
		},
	}
}
