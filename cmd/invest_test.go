package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/contract"
	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/Mohsinsiddi/infinity/internal/invest"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	depositContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	depositInvestor = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	depositTxHash   = "0x8b7e2c1a0f4d5e6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// pendingChain never has a receipt for any transaction.
func pendingChain(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": nil}) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

// countingWallet accepts every deposit and counts them.
type countingWallet struct {
	mu   sync.Mutex
	sent int
	feed event.Feed
}

func (w *countingWallet) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	if method != "eth_sendTransaction" {
		return nil, wallet.NewProviderError(wallet.CodeUnsupported, "unsupported method %s", method)
	}
	w.mu.Lock()
	w.sent++
	w.mu.Unlock()
	return json.Marshal(depositTxHash)
}

func (w *countingWallet) SubscribeEvents(ch chan<- wallet.ProviderEvent) event.Subscription {
	return w.feed.Subscribe(ch)
}

func (w *countingWallet) Flags() wallet.Flags { return wallet.Flags{IsMetaMask: true} }

func depositBundle() *invest.Bundle {
	return &invest.Bundle{
		Terms: domain.Terms{
			Template:  domain.DefaultTemplates()[1],
			Amount:    decimal.NewFromInt(50),
			Term:      "12 months",
			TargetAPY: decimal.RequireFromString("14.8"),
			Investor:  depositInvestor,
			Network:   "0xaa36a7",
		},
		Payload:        []byte(`{"contractVersion":"IV-SBT-1.0"}`),
		Document:       []byte("%PDF-1.3"),
		DocumentHash:   "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45",
		StorageLocator: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
	}
}

// ---------------------------------------------------------------------------
// Deposit retry
// ---------------------------------------------------------------------------

func TestMintWithRetryNeverResendsSubmittedDeposit(t *testing.T) {
	srv := pendingChain(t)
	cc, err := contract.NewClient(contract.Config{
		Address:        depositContract,
		ChainID:        11155111,
		Reader:         chain.NewEVMClient(srv.URL),
		PollInterval:   5 * time.Millisecond,
		ConfirmTimeout: 30 * time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)

	// Keep waiting once, then give up.
	prev := ui.Input
	ui.Input = strings.NewReader("y\nn\n")
	t.Cleanup(func() { ui.Input = prev })

	w := &countingWallet{}
	s := wallet.Session{WalletID: wallet.MetaMask, Account: depositInvestor, ChainID: "0xaa36a7"}
	b := depositBundle()

	res, err := mintWithRetry(context.Background(), cc, w, s, invest.Summary{Principal: b.Terms.Amount}, b)
	require.ErrorIs(t, err, contract.ErrNotMined)
	assert.Nil(t, res)
	assert.Equal(t, 1, w.sent, "a submitted deposit is waited on, never sent again")
	assert.True(t, b.Complete())
}
