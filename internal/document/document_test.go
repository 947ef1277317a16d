package document

import (
	"bytes"
	"testing"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTerms() domain.Terms {
	tmpl := domain.DefaultTemplates()[1]
	return domain.Terms{
		Template:     tmpl,
		Amount:       decimal.NewFromInt(50),
		Term:         "12 months",
		TargetAPY:    decimal.RequireFromString("14.8"),
		SpecialTerms: "Reinvest distributions – café clause",
		Investor:     "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Network:      "0xaa36a7",
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	b, err := Serialize(sampleTerms(), "IV-SBT-1.0", at)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"contractVersion":"IV-SBT-1.0"`)
	assert.Contains(t, string(b), `"investor":"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`)

	p, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, at, p.GeneratedAt)
	assert.Equal(t, "12 months", p.Term)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(50)))
}

func TestDecodeRejectsForeignJSON(t *testing.T) {
	_, err := Decode([]byte(`{"foo":1}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`nope`))
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	h := Hash([]byte("abc"))
	assert.Len(t, h, 66)
	assert.Equal(t, "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45", h)
	assert.Equal(t, h, Hash([]byte("abc")))
	assert.NotEqual(t, h, Hash([]byte("abd")))
}

func TestRenderDeterministic(t *testing.T) {
	b, err := Serialize(sampleTerms(), "IV-SBT-1.0", time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC))
	require.NoError(t, err)

	pdf1, err := Render(b)
	require.NoError(t, err)
	pdf2, err := Render(b)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(pdf1, []byte("%PDF-")))
	assert.Equal(t, pdf1, pdf2)
	assert.Positive(t, SizeKB(pdf1))
}

func TestRenderRejectsBadPayload(t *testing.T) {
	_, err := Render([]byte(`{}`))
	assert.Error(t, err)
}

func TestSizeKB(t *testing.T) {
	assert.Equal(t, 0, SizeKB(nil))
	assert.Equal(t, 1, SizeKB(make([]byte, 1)))
	assert.Equal(t, 1, SizeKB(make([]byte, 1024)))
	assert.Equal(t, 2, SizeKB(make([]byte, 1025)))
}
