package invest

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/shopspring/decimal"
)

// TermsInput is the raw step-2 form.
type TermsInput struct {
	Amount       string
	Term         string
	APY          string
	SpecialTerms string
}

// ValidateTerms checks in against tmpl and returns the parsed amount and APY.
func ValidateTerms(tmpl domain.Template, in TermsInput) (amount, apy decimal.Decimal, err error) {
	amount, err = parseNumber("amount", "investment amount", in.Amount)
	if err != nil {
		return
	}
	apy, err = parseNumber("apy", "target APY", in.APY)
	if err != nil {
		return
	}
	if !tmpl.AmountInRange(amount) {
		err = &ValidationError{
			Field: "amount",
			Msg:   fmt.Sprintf("Amount must be between %s and %s", tmpl.MinAmount, tmpl.MaxAmount),
		}
		return
	}
	if !tmpl.TargetAPYRange.Contains(apy) {
		err = &ValidationError{
			Field: "apy",
			Msg:   fmt.Sprintf("Target APY must be between %s%% and %s%%", tmpl.TargetAPYRange.Min, tmpl.TargetAPYRange.Max),
		}
		return
	}
	if !tmpl.HasTerm(in.Term) {
		err = &ValidationError{
			Field: "term",
			Msg:   "Please select a term: " + strings.Join(tmpl.TermsOptions, ", "),
		}
		return
	}
	return amount, apy, nil
}

func parseNumber(field, label, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: field, Msg: "Please enter the " + label}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Msg: fmt.Sprintf("The %s must be a number", label)}
	}
	return d, nil
}
