package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------------------
// Status lines
// ---------------------------------------------------------------------------

func TestStatusLinePrefixes(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"success", Success, "✓"},
		{"warn", Warn, "⚠"},
		{"err", Err, "✗"},
		{"info", Info, "•"},
		{"hint", Hint, "→"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.fn("deposit confirmed")
			assert.Contains(t, out, tt.prefix)
			assert.Contains(t, out, "deposit confirmed")
		})
	}
}

func TestInfoDifferentFromHint(t *testing.T) {
	assert.NotEqual(t, Info("Sepolia"), Hint("Sepolia"))
}

func TestFormattersKeepText(t *testing.T) {
	formatters := map[string]func(string) string{
		"Addr":      Addr,
		"Val":       Val,
		"Meta":      Meta,
		"ChainName": ChainName,
	}
	for name, fn := range formatters {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, fn("Infinity Growth Vault"), "Infinity Growth Vault")
		})
	}
}

func TestBannerCarriesTagline(t *testing.T) {
	assert.Contains(t, Banner(), "Infinity Ventures")
}

// ---------------------------------------------------------------------------
// TruncateAddr
// ---------------------------------------------------------------------------

func TestTruncateAddr(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"0x1234", "0x1234"},
		{"0x12345678", "0x12345678"},
		{"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "0xf39F…2266"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateAddr(tt.in))
	}
	assert.True(t, strings.HasPrefix(TruncateAddr("0x5FbDB2315678afecb367f032d93F642f64180aa3"), "0x5FbD"))
}
