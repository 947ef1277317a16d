package invest

import (
	"errors"
	"testing"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func growthVault(t *testing.T) domain.Template {
	t.Helper()
	tmpl, err := domain.FindTemplate(domain.DefaultTemplates(), "infinity-growth-vault")
	require.NoError(t, err)
	return tmpl
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Field
}

func TestValidateTermsAmountBoundaries(t *testing.T) {
	for _, tmpl := range domain.DefaultTemplates() {
		apy := tmpl.TargetAPYRange.Min.String()
		term := tmpl.TermsOptions[0]
		step := decimal.RequireFromString("0.0001")

		_, _, err := ValidateTerms(tmpl, TermsInput{Amount: tmpl.MinAmount.String(), APY: apy, Term: term})
		assert.NoError(t, err, tmpl.ID)
		_, _, err = ValidateTerms(tmpl, TermsInput{Amount: tmpl.MaxAmount.String(), APY: apy, Term: term})
		assert.NoError(t, err, tmpl.ID)

		_, _, err = ValidateTerms(tmpl, TermsInput{Amount: tmpl.MinAmount.Sub(step).String(), APY: apy, Term: term})
		assert.Equal(t, "amount", fieldOf(t, err), tmpl.ID)
		_, _, err = ValidateTerms(tmpl, TermsInput{Amount: tmpl.MaxAmount.Add(step).String(), APY: apy, Term: term})
		assert.Equal(t, "amount", fieldOf(t, err), tmpl.ID)
	}
}

func TestValidateTermsAPYBoundaries(t *testing.T) {
	for _, tmpl := range domain.DefaultTemplates() {
		amt := tmpl.MinAmount.String()
		term := tmpl.TermsOptions[0]
		r := tmpl.TargetAPYRange
		step := decimal.RequireFromString("0.01")

		_, _, err := ValidateTerms(tmpl, TermsInput{Amount: amt, APY: r.Min.String(), Term: term})
		assert.NoError(t, err, tmpl.ID)
		_, _, err = ValidateTerms(tmpl, TermsInput{Amount: amt, APY: r.Max.String(), Term: term})
		assert.NoError(t, err, tmpl.ID)

		_, _, err = ValidateTerms(tmpl, TermsInput{Amount: amt, APY: r.Min.Sub(step).String(), Term: term})
		assert.Equal(t, "apy", fieldOf(t, err), tmpl.ID)
		_, _, err = ValidateTerms(tmpl, TermsInput{Amount: amt, APY: r.Max.Add(step).String(), Term: term})
		assert.Equal(t, "apy", fieldOf(t, err), tmpl.ID)
	}
}

func TestValidateTermsMessages(t *testing.T) {
	tmpl := growthVault(t)
	cases := []struct {
		in    TermsInput
		field string
		msg   string
	}{
		{TermsInput{APY: "14.8", Term: "12 months"}, "amount", "Please enter the investment amount"},
		{TermsInput{Amount: "ten", APY: "14.8", Term: "12 months"}, "amount", "The investment amount must be a number"},
		{TermsInput{Amount: "50", Term: "12 months"}, "apy", "Please enter the target APY"},
		{TermsInput{Amount: "50", APY: "x", Term: "12 months"}, "apy", "The target APY must be a number"},
		{TermsInput{Amount: "5", APY: "14.8", Term: "12 months"}, "amount", "Amount must be between 10 and 100"},
		{TermsInput{Amount: "50", APY: "15", Term: "12 months"}, "apy", "Target APY must be between 14.8% and 14.8%"},
		{TermsInput{Amount: "50", APY: "14.8", Term: "6 months"}, "term", "Please select a term: 12 months, 24 months"},
		{TermsInput{Amount: "50", APY: "14.8"}, "term", "Please select a term: 12 months, 24 months"},
	}
	for _, tc := range cases {
		_, _, err := ValidateTerms(tmpl, tc.in)
		require.Error(t, err)
		assert.Equal(t, tc.field, fieldOf(t, err))
		assert.Equal(t, tc.msg, err.Error())
	}
}

func TestValidateTermsParses(t *testing.T) {
	amount, apy, err := ValidateTerms(growthVault(t), TermsInput{Amount: " 50 ", APY: "14.80", Term: "24 months"})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "14.8", apy.String())
}
