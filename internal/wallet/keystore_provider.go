package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"
)

// RPCClient is the node access a keystore provider needs.
type RPCClient interface {
	Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
	GetNonce(ctx context.Context, address string) (uint64, error)
	SuggestFees(ctx context.Context) (*chain.Fees, error)
	EstimateGas(ctx context.Context, from, to, data string, value *big.Int) (uint64, error)
	SendRawTransaction(ctx context.Context, rawTx string) (string, error)
}

// KeystoreProviderConfig configures a KeystoreProvider.
type KeystoreProviderConfig struct {
	Brand        WalletID
	Wallet       *Wallet
	Keystore     KeystoreBackend
	Registry     *chain.Registry
	Permissions  *PermissionStore
	Prompter     Prompter
	DefaultChain string   // registry name selected on first use
	KnownChains  []string // registry names the wallet ships with
	CustomRPCs   map[string][]string
	Dial         func(rpcURL string) RPCClient
	Logger       zerolog.Logger
}

var defaultKnownChains = []string{"ethereum", "sepolia"}

// KeystoreProvider is an in-process EIP-1193 wallet whose keys live in the
// OS keychain. Every privileged request goes through the Prompter.
type KeystoreProvider struct {
	brand    WalletID
	wallet   *Wallet
	signer   *Signer
	ks       KeystoreBackend
	registry *chain.Registry
	perms    *PermissionStore
	prompter Prompter
	custom   map[string][]string
	dial     func(string) RPCClient
	log      zerolog.Logger

	mu      sync.Mutex
	known   map[int64]chain.Chain
	current chain.Chain
	pending bool

	feed event.Feed
}

// NewKeystoreProvider builds a provider for a signing wallet.
func NewKeystoreProvider(cfg KeystoreProviderConfig) (*KeystoreProvider, error) {
	if cfg.Wallet == nil || !cfg.Wallet.CanSign() {
		return nil, errors.New("keystore provider needs a signing wallet")
	}
	if cfg.Registry == nil {
		cfg.Registry = chain.NewRegistry()
	}
	if cfg.Permissions == nil {
		cfg.Permissions, _ = NewPermissionStore("")
	}
	if cfg.Prompter == nil {
		cfg.Prompter = AutoApprove
	}
	if cfg.Dial == nil {
		cfg.Dial = func(url string) RPCClient { return chain.NewEVMClient(url) }
	}
	known := cfg.KnownChains
	if len(known) == 0 {
		known = defaultKnownChains
	}

	p := &KeystoreProvider{
		brand:    cfg.Brand,
		wallet:   cfg.Wallet,
		signer:   NewSigner(cfg.Wallet, cfg.Keystore),
		ks:       cfg.Keystore,
		registry: cfg.Registry,
		perms:    cfg.Permissions,
		prompter: cfg.Prompter,
		custom:   cfg.CustomRPCs,
		dial:     cfg.Dial,
		log:      cfg.Logger.With().Str("component", "keystore_provider").Str("wallet", string(cfg.Brand)).Logger(),
		known:    make(map[int64]chain.Chain),
	}

	for _, name := range known {
		c, err := cfg.Registry.GetByName(name)
		if err != nil {
			return nil, fmt.Errorf("known chain %s: %w", name, err)
		}
		p.known[c.ChainID] = *c
	}
	if cfg.DefaultChain != "" {
		c, err := cfg.Registry.GetByName(cfg.DefaultChain)
		if err != nil {
			return nil, fmt.Errorf("default chain %s: %w", cfg.DefaultChain, err)
		}
		p.known[c.ChainID] = *c
		p.current = *c
	}

	state := p.perms.Get(p.key())
	for _, params := range state.AddedChains {
		if c, err := chainFromParams(params); err == nil {
			p.known[c.ChainID] = c
		}
	}
	if id, err := chain.ParseChainID(state.SelectedChain); err == nil {
		if c, ok := p.known[id]; ok {
			p.current = c
		}
	}
	if p.current.ChainID == 0 {
		p.current = p.known[1]
		if p.current.ChainID == 0 {
			for _, c := range p.known {
				p.current = c
				break
			}
		}
	}
	return p, nil
}

// Flags reports the brand markers for this provider.
func (p *KeystoreProvider) Flags() Flags { return FlagsFor(p.brand) }

// SubscribeEvents delivers accountsChanged / chainChanged notifications.
func (p *KeystoreProvider) SubscribeEvents(ch chan<- ProviderEvent) event.Subscription {
	return p.feed.Subscribe(ch)
}

// CurrentChain returns the selected network.
func (p *KeystoreProvider) CurrentChain() chain.Chain {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// RevokeAccess forgets the authorization and tells listeners the account list
// is now empty, the same as disconnecting a site from inside the wallet.
func (p *KeystoreProvider) RevokeAccess() error {
	if err := p.perms.Revoke(p.key()); err != nil {
		return err
	}
	p.feed.Send(ProviderEvent{Name: EventAccountsChanged, Accounts: []string{}})
	return nil
}

// Request performs one EIP-1193 request.
func (p *KeystoreProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	p.log.Debug().Str("method", method).Msg("provider request")
	switch method {
	case "eth_requestAccounts":
		return p.requestAccounts(ctx)
	case "eth_accounts":
		if p.authorized() {
			return marshal([]string{p.wallet.Address})
		}
		return marshal([]string{})
	case "eth_chainId":
		return marshal(p.CurrentChain().HexID())
	case "net_version":
		return marshal(fmt.Sprintf("%d", p.CurrentChain().ChainID))
	case "wallet_switchEthereumChain":
		return p.switchChain(ctx, params)
	case "wallet_addEthereumChain":
		return p.addChain(ctx, params)
	case "personal_sign":
		return p.personalSign(ctx, params)
	case "eth_sendTransaction":
		return p.sendTransaction(ctx, params)
	case "eth_sign", "eth_signTransaction", "eth_signTypedData", "eth_signTypedData_v3", "eth_signTypedData_v4":
		return nil, NewProviderError(CodeUnsupported, "The provider does not support %s.", method)
	}
	if !strings.HasPrefix(method, "eth_") && !strings.HasPrefix(method, "net_") && !strings.HasPrefix(method, "web3_") {
		return nil, NewProviderError(CodeUnsupported, "The provider does not support %s.", method)
	}
	raw, err := p.client().Call(ctx, method, params...)
	if err != nil {
		return nil, asProviderError(err)
	}
	return raw, nil
}

func (p *KeystoreProvider) requestAccounts(ctx context.Context) (json.RawMessage, error) {
	if p.authorized() {
		return marshal([]string{p.wallet.Address})
	}

	p.mu.Lock()
	if p.pending {
		p.mu.Unlock()
		return nil, NewProviderError(CodeRequestPending, "Request of type 'wallet_requestPermissions' already pending. Please wait.")
	}
	p.pending = true
	current := p.current
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.pending = false
		p.mu.Unlock()
	}()

	ok, err := p.prompter.Approve(ctx, Prompt{
		Kind:  PromptConnect,
		Title: "Connect to Infinity Ventures",
		Details: [][2]string{
			{"Wallet", p.brand.Name()},
			{"Account", p.wallet.Address},
			{"Network", current.DisplayName},
		},
	})
	if err != nil {
		return nil, NewProviderError(CodeInternal, "%s", err.Error())
	}
	if !ok {
		return nil, NewProviderError(CodeUserRejected, "User rejected the request.")
	}
	if err := p.perms.Grant(p.key(), p.wallet.Address); err != nil {
		p.log.Warn().Err(err).Msg("could not persist permission")
	}
	return marshal([]string{p.wallet.Address})
}

func (p *KeystoreProvider) switchChain(ctx context.Context, params []any) (json.RawMessage, error) {
	var arg struct {
		ChainID string `json:"chainId"`
	}
	if err := decodeParam(params, 0, &arg); err != nil {
		return nil, err
	}
	id, err := chain.ParseChainID(arg.ChainID)
	if err != nil {
		return nil, NewProviderError(CodeInvalidParams, "Invalid chainId %q.", arg.ChainID)
	}

	p.mu.Lock()
	target, known := p.known[id]
	current := p.current
	p.mu.Unlock()

	if !known {
		return nil, NewProviderError(CodeUnknownChain,
			"Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", arg.ChainID)
	}
	if target.ChainID == current.ChainID {
		return marshal(nil)
	}

	ok, err := p.prompter.Approve(ctx, Prompt{
		Kind:  PromptSwitchChain,
		Title: "Allow this site to switch the network?",
		Details: [][2]string{
			{"From", current.DisplayName},
			{"To", target.DisplayName},
		},
	})
	if err != nil {
		return nil, NewProviderError(CodeInternal, "%s", err.Error())
	}
	if !ok {
		return nil, NewProviderError(CodeUserRejected, "User rejected the request.")
	}

	p.selectChain(target)
	return marshal(nil)
}

func (p *KeystoreProvider) addChain(ctx context.Context, params []any) (json.RawMessage, error) {
	var arg chain.AddChainParams
	if err := decodeParam(params, 0, &arg); err != nil {
		return nil, err
	}
	c, err := chainFromParams(arg)
	if err != nil {
		return nil, NewProviderError(CodeInvalidParams, "%s", err.Error())
	}

	ok, err := p.prompter.Approve(ctx, Prompt{
		Kind:  PromptAddChain,
		Title: "Allow this site to add a network?",
		Details: [][2]string{
			{"Network", c.DisplayName},
			{"Chain ID", fmt.Sprintf("%d", c.ChainID)},
			{"Currency", c.Currency.Symbol},
			{"RPC URL", c.RPCs[0]},
			{"Explorer", c.Explorer},
		},
	})
	if err != nil {
		return nil, NewProviderError(CodeInternal, "%s", err.Error())
	}
	if !ok {
		return nil, NewProviderError(CodeUserRejected, "User rejected the request.")
	}

	p.mu.Lock()
	p.known[c.ChainID] = c
	p.mu.Unlock()
	if err := p.perms.AddChain(p.key(), arg); err != nil {
		p.log.Warn().Err(err).Msg("could not persist added network")
	}
	p.log.Info().Str("chain", c.DisplayName).Msg("network added")
	return marshal(nil)
}

func (p *KeystoreProvider) personalSign(ctx context.Context, params []any) (json.RawMessage, error) {
	var msgParam, account string
	if err := decodeParam(params, 0, &msgParam); err != nil {
		return nil, err
	}
	if err := decodeParam(params, 1, &account); err != nil {
		return nil, err
	}
	if err := p.checkAccount(account); err != nil {
		return nil, err
	}

	message := []byte(msgParam)
	if decoded, err := hexutil.Decode(msgParam); err == nil {
		message = decoded
	}

	ok, err := p.prompter.Approve(ctx, Prompt{
		Kind:  PromptSign,
		Title: "Signature request",
		Details: [][2]string{
			{"Account", p.wallet.Address},
			{"Message", string(message)},
		},
	})
	if err != nil {
		return nil, NewProviderError(CodeInternal, "%s", err.Error())
	}
	if !ok {
		return nil, NewProviderError(CodeUserRejected, "User denied message signature.")
	}

	sig, err := SignMessage(p.wallet, p.ks, message)
	if err != nil {
		return nil, NewProviderError(CodeInternal, "%s", err.Error())
	}
	return marshal(hexutil.Encode(sig))
}

func (p *KeystoreProvider) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	var req TxRequest
	if err := decodeParam(params, 0, &req); err != nil {
		return nil, err
	}
	if err := p.checkAccount(req.From); err != nil {
		return nil, err
	}

	value := new(big.Int)
	if req.Value != "" {
		v, err := hexutil.DecodeBig(req.Value)
		if err != nil {
			return nil, NewProviderError(CodeInvalidParams, "Invalid value %q.", req.Value)
		}
		value = v
	}
	var data []byte
	if req.Data != "" && req.Data != "0x" {
		d, err := hexutil.Decode(req.Data)
		if err != nil {
			return nil, NewProviderError(CodeInvalidParams, "Invalid data.")
		}
		data = d
	}
	var to *common.Address
	if req.To != "" {
		if !common.IsHexAddress(req.To) {
			return nil, NewProviderError(CodeInvalidParams, "Invalid to address %q.", req.To)
		}
		addr := common.HexToAddress(req.To)
		to = &addr
	}

	current := p.CurrentChain()
	client := p.client()

	nonce, err := client.GetNonce(ctx, p.wallet.Address)
	if err != nil {
		return nil, asProviderError(err)
	}
	fees, err := client.SuggestFees(ctx)
	if err != nil {
		return nil, asProviderError(err)
	}
	var gas uint64
	if req.Gas != "" {
		gas, err = hexutil.DecodeUint64(req.Gas)
		if err != nil {
			return nil, NewProviderError(CodeInvalidParams, "Invalid gas %q.", req.Gas)
		}
	} else {
		est, err := client.EstimateGas(ctx, p.wallet.Address, req.To, req.Data, value)
		if err != nil {
			return nil, asProviderError(err)
		}
		gas = est + est/5
	}

	maxCost := new(big.Int).Add(value, new(big.Int).Mul(fees.FeeCap, new(big.Int).SetUint64(gas)))
	ok, err := p.prompter.Approve(ctx, Prompt{
		Kind:  PromptTransaction,
		Title: "Confirm transaction",
		Details: [][2]string{
			{"Network", current.DisplayName},
			{"From", p.wallet.Address},
			{"To", req.To},
			{"Value", chain.WeiToETH(value) + " " + current.Currency.Symbol},
			{"Max cost", chain.WeiToETH(maxCost) + " " + current.Currency.Symbol},
			{"Data", fmt.Sprintf("%d bytes", len(data))},
		},
	})
	if err != nil {
		return nil, NewProviderError(CodeInternal, "%s", err.Error())
	}
	if !ok {
		return nil, NewProviderError(CodeUserRejected, "User denied transaction signature.")
	}

	raw, signedHash, err := p.signer.Sign(TxParams{
		ChainID: current.ChainID,
		Nonce:   nonce,
		Gas:     gas,
		TipCap:  fees.TipCap,
		FeeCap:  fees.FeeCap,
		To:      to,
		Value:   value,
		Data:    data,
	})
	if err != nil {
		return nil, NewProviderError(CodeInternal, "%s", err.Error())
	}
	hash, err := client.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return nil, asProviderError(err)
	}
	if !strings.EqualFold(hash, signedHash.Hex()) {
		p.log.Warn().Str("node_hash", hash).Str("signed_hash", signedHash.Hex()).Msg("node reported a different transaction hash")
	}
	p.log.Info().Str("hash", hash).Str("chain", current.Name).Msg("transaction sent")
	return marshal(hash)
}

func (p *KeystoreProvider) selectChain(c chain.Chain) {
	p.mu.Lock()
	p.current = c
	p.mu.Unlock()
	if err := p.perms.Select(p.key(), c.HexID()); err != nil {
		p.log.Warn().Err(err).Msg("could not persist selected network")
	}
	p.feed.Send(ProviderEvent{Name: EventChainChanged, ChainID: c.HexID()})
}

func (p *KeystoreProvider) checkAccount(account string) error {
	if !p.authorized() || !strings.EqualFold(account, p.wallet.Address) {
		return NewProviderError(CodeUnauthorized, "The requested account and/or method has not been authorized by the user.")
	}
	return nil
}

func (p *KeystoreProvider) authorized() bool {
	return p.perms.IsAuthorized(p.key(), p.wallet.Address)
}

func (p *KeystoreProvider) client() RPCClient {
	c := p.CurrentChain()
	rpcs := c.WithCustomRPCs(p.custom[c.Name]).RPCs
	if len(rpcs) == 0 {
		return p.dial("")
	}
	return p.dial(rpcs[0])
}

func (p *KeystoreProvider) key() string {
	return string(p.brand)
}

// --- helpers ---

func chainFromParams(params chain.AddChainParams) (chain.Chain, error) {
	id, err := chain.ParseChainID(params.ChainID)
	if err != nil {
		return chain.Chain{}, err
	}
	if len(params.RPCURLs) == 0 {
		return chain.Chain{}, errors.New("rpcUrls must not be empty")
	}
	if params.ChainName == "" {
		return chain.Chain{}, errors.New("chainName is required")
	}
	c := chain.Chain{
		Name:        strings.ToLower(strings.ReplaceAll(params.ChainName, " ", "-")),
		DisplayName: params.ChainName,
		ChainID:     id,
		Currency:    params.NativeCurrency,
		RPCs:        params.RPCURLs,
	}
	if len(params.BlockExplorerURLs) > 0 {
		c.Explorer = params.BlockExplorerURLs[0]
	}
	return c, nil
}

func decodeParam(params []any, i int, out any) error {
	if i >= len(params) {
		return NewProviderError(CodeInvalidParams, "Missing parameter %d.", i)
	}
	raw, err := json.Marshal(params[i])
	if err != nil {
		return NewProviderError(CodeInvalidParams, "Invalid parameter %d: %s", i, err.Error())
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewProviderError(CodeInvalidParams, "Invalid parameter %d: %s", i, err.Error())
	}
	return nil
}

func asProviderError(err error) error {
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		return &ProviderError{Code: rpcErr.Code, Message: rpcErr.Message, Data: rpcErr.Data}
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Code: CodeInternal, Message: err.Error()}
}

func marshal(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
