package network

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type call struct {
	method string
	params []any
}

// scriptedProvider answers by method; errors take precedence.
type scriptedProvider struct {
	chainID string
	errs    map[string]error
	calls   []call
	feed    event.Feed
}

func (s *scriptedProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	s.calls = append(s.calls, call{method, params})
	if err := s.errs[method]; err != nil {
		return nil, err
	}
	if method == "eth_chainId" {
		return json.Marshal(s.chainID)
	}
	return json.RawMessage("null"), nil
}

func (s *scriptedProvider) SubscribeEvents(ch chan<- wallet.ProviderEvent) event.Subscription {
	return s.feed.Subscribe(ch)
}

func (s *scriptedProvider) Flags() wallet.Flags { return wallet.FlagsFor(wallet.MetaMask) }

func (s *scriptedProvider) methods() []string {
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.method
	}
	return out
}

func newGuard(t *testing.T, prompter wallet.Prompter) *Guard {
	t.Helper()
	g, err := NewGuard(chain.NewRegistry(), []string{"ethereum"}, "sepolia", prompter, zerolog.Nop())
	require.NoError(t, err)
	return g
}

// ---------------------------------------------------------------------------
// IsSupportedChain / Check
// ---------------------------------------------------------------------------

func TestIsSupportedChain(t *testing.T) {
	g := newGuard(t, nil)
	assert.True(t, g.IsSupportedChain("0xaa36a7"))
	assert.True(t, g.IsSupportedChain("0x1"))
	assert.True(t, g.IsSupportedChain("11155111"))
	assert.False(t, g.IsSupportedChain("0x89"))
	assert.False(t, g.IsSupportedChain(""))
	assert.False(t, g.IsSupportedChain("garbage"))
}

func TestCheck(t *testing.T) {
	g := newGuard(t, nil)
	assert.NoError(t, g.Check("0xaa36a7"))

	err := g.Check("0x89")
	require.ErrorIs(t, err, ErrUnsupportedChain)
	assert.Contains(t, err.Error(), "Polygon")
	assert.Contains(t, err.Error(), "Sepolia Testnet")
}

func TestSupportedPreferredFirst(t *testing.T) {
	g := newGuard(t, nil)
	s := g.Supported()
	require.Len(t, s, 2)
	assert.Equal(t, "sepolia", s[0].Name)
	assert.Equal(t, "ethereum", s[1].Name)
}

func TestNewGuardUnknownChain(t *testing.T) {
	_, err := NewGuard(chain.NewRegistry(), nil, "nope", nil, zerolog.Nop())
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

// ---------------------------------------------------------------------------
// SwitchToPreferredChain
// ---------------------------------------------------------------------------

func TestSwitchAlreadyOn(t *testing.T) {
	p := &scriptedProvider{chainID: "0xaa36a7"}
	out, err := newGuard(t, nil).SwitchToPreferredChain(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, AlreadyOn, out)
	assert.Equal(t, []string{"eth_chainId"}, p.methods())
}

func TestSwitchSucceeds(t *testing.T) {
	var shown wallet.Prompt
	prompter := wallet.PromptFunc(func(_ context.Context, pr wallet.Prompt) (bool, error) {
		shown = pr
		return true, nil
	})
	p := &scriptedProvider{chainID: "0x1"}

	out, err := newGuard(t, prompter).SwitchToPreferredChain(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Switched, out)
	assert.Equal(t, []string{"eth_chainId", "wallet_switchEthereumChain"}, p.methods())
	assert.Equal(t, map[string]string{"chainId": "0xaa36a7"}, p.calls[1].params[0])

	assert.Equal(t, [2]string{"Current", "Ethereum Mainnet"}, shown.Details[0])
	assert.Equal(t, [2]string{"Preferred", "Sepolia Testnet"}, shown.Details[1])
}

func TestSwitchPromptDeclined(t *testing.T) {
	p := &scriptedProvider{chainID: "0x1"}
	decline := wallet.PromptFunc(func(context.Context, wallet.Prompt) (bool, error) { return false, nil })

	out, err := newGuard(t, decline).SwitchToPreferredChain(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, out)
	assert.Equal(t, []string{"eth_chainId"}, p.methods(), "provider must not be asked")
}

func TestSwitchUserRejected(t *testing.T) {
	p := &scriptedProvider{chainID: "0x1", errs: map[string]error{
		"wallet_switchEthereumChain": wallet.NewProviderError(wallet.CodeUserRejected, "User rejected the request."),
	}}
	out, err := newGuard(t, nil).SwitchToPreferredChain(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, out)
}

func TestSwitchUnknownChainAdds(t *testing.T) {
	p := &scriptedProvider{chainID: "0x1", errs: map[string]error{
		"wallet_switchEthereumChain": wallet.NewProviderError(wallet.CodeUnknownChain, "Unrecognized chain ID"),
	}}
	g := newGuard(t, nil)

	out, err := g.SwitchToPreferredChain(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Added, out)
	assert.Equal(t, []string{"eth_chainId", "wallet_switchEthereumChain", "wallet_addEthereumChain"}, p.methods(),
		"no automatic switch retry after add")

	params, ok := p.calls[2].params[0].(chain.AddChainParams)
	require.True(t, ok)
	pref := g.Preferred()
	assert.Equal(t, pref.AddParams(), params)
	assert.Equal(t, "0xaa36a7", params.ChainID)
	assert.Equal(t, "Sepolia Testnet", params.ChainName)
	assert.Equal(t, "ETH", params.NativeCurrency.Symbol)
	assert.Equal(t, []string{"https://sepolia.etherscan.io"}, params.BlockExplorerURLs)
	assert.NotEmpty(t, params.RPCURLs)
}

func TestSwitchAddRejected(t *testing.T) {
	p := &scriptedProvider{chainID: "0x1", errs: map[string]error{
		"wallet_switchEthereumChain": wallet.NewProviderError(wallet.CodeUnknownChain, "Unrecognized chain ID"),
		"wallet_addEthereumChain":    wallet.NewProviderError(wallet.CodeUserRejected, "User rejected the request."),
	}}
	out, err := newGuard(t, nil).SwitchToPreferredChain(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, out)
}

func TestSwitchOtherError(t *testing.T) {
	p := &scriptedProvider{chainID: "0x1", errs: map[string]error{
		"wallet_switchEthereumChain": wallet.NewProviderError(wallet.CodeInternal, "Internal JSON-RPC error."),
	}}
	_, err := newGuard(t, nil).SwitchToPreferredChain(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, "failed to switch to Sepolia Testnet: Internal JSON-RPC error.", err.Error())
	assert.Equal(t, wallet.CodeInternal, wallet.ErrorCode(err))
}

// ---------------------------------------------------------------------------
// end to end with the keystore provider
// ---------------------------------------------------------------------------

func TestSwitchWithKeystoreProvider(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	ref, err := ks.Store("alice", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	p, err := wallet.NewKeystoreProvider(wallet.KeystoreProviderConfig{
		Brand:       wallet.MetaMask,
		Wallet:      &wallet.Wallet{Name: "alice", Address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", Type: wallet.TypeSigning, KeyRef: ref},
		Keystore:    ks,
		KnownChains: []string{"ethereum"},
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	g := newGuard(t, nil)

	out, err := g.SwitchToPreferredChain(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Added, out)
	assert.Equal(t, "0x1", p.CurrentChain().HexID())

	out, err = g.SwitchToPreferredChain(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Switched, out)
	assert.Equal(t, "0xaa36a7", p.CurrentChain().HexID())
}
