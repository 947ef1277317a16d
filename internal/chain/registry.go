package chain

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// NativeCurrency describes a chain's gas token the way wallet_addEthereumChain expects it.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Chain holds all metadata for a single EVM network.
type Chain struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	ChainID     int64          `json:"chain_id"`
	Currency    NativeCurrency `json:"native_currency"`
	RPCs        []string       `json:"rpcs"`
	Explorer    string         `json:"explorer"`
	IsTestnet   bool           `json:"is_testnet"`
	FaucetURL   string         `json:"faucet_url,omitempty"`
}

// AddChainParams is the EIP-3085 wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// HexID returns the chain id in the 0x-prefixed form providers report.
func (c Chain) HexID() string {
	return HexChainID(c.ChainID)
}

// AddParams returns the wallet_addEthereumChain payload for this chain.
func (c Chain) AddParams() AddChainParams {
	var explorers []string
	if c.Explorer != "" {
		explorers = []string{c.Explorer}
	}
	return AddChainParams{
		ChainID:           c.HexID(),
		ChainName:         c.DisplayName,
		NativeCurrency:    c.Currency,
		RPCURLs:           c.RPCs,
		BlockExplorerURLs: explorers,
	}
}

// TxURL links a transaction on the chain's explorer.
func (c Chain) TxURL(hash string) string {
	if c.Explorer == "" {
		return ""
	}
	return strings.TrimRight(c.Explorer, "/") + "/tx/" + hash
}

// HexChainID formats a numeric chain id as lowercase 0x-hex.
func HexChainID(id int64) string {
	return fmt.Sprintf("0x%x", id)
}

// ParseChainID parses a decimal or 0x-hex chain id.
func ParseChainID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok || !n.IsInt64() || n.Sign() <= 0 {
		return 0, fmt.Errorf("invalid chain id %q", s)
	}
	return n.Int64(), nil
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry creates the registry of known networks.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]*Chain),
		byID:   make(map[int64]*Chain),
	}
	for _, c := range allChains() {
		r.Add(c)
	}
	return r
}

// Add registers (or replaces) a chain.
func (r *Registry) Add(c Chain) {
	c.Name = strings.ToLower(c.Name)
	if i := slices.IndexFunc(r.chains, func(x Chain) bool { return x.Name == c.Name }); i >= 0 {
		r.chains[i] = c
	} else {
		r.chains = append(r.chains, c)
	}
	r.reindex()
}

func (r *Registry) reindex() {
	clear(r.byName)
	clear(r.byID)
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
	}
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a chain by its slug name (e.g. "sepolia", "ethereum").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByHexID finds a chain by its 0x-hex chain ID.
func (r *Registry) GetByHexID(hexID string) (*Chain, error) {
	id, err := ParseChainID(hexID)
	if err != nil {
		return nil, ErrChainNotFound
	}
	return r.GetByChainID(id)
}

// DisplayNameFor returns a human name for a hex chain id, falling back to the id itself.
func (r *Registry) DisplayNameFor(hexID string) string {
	if c, err := r.GetByHexID(hexID); err == nil {
		return c.DisplayName
	}
	return "Unknown network (" + hexID + ")"
}

// WithCustomRPCs returns a copy of c whose RPC list is prefixed by custom.
func (c Chain) WithCustomRPCs(custom []string) Chain {
	if len(custom) == 0 {
		return c
	}
	rpcs := make([]string, 0, len(custom)+len(c.RPCs))
	rpcs = append(rpcs, custom...)
	rpcs = append(rpcs, c.RPCs...)
	c.RPCs = rpcs
	return c
}

// --- chain data ---

var ether = NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}

func allChains() []Chain {
	return []Chain{
		{
			Name: "ethereum", DisplayName: "Ethereum Mainnet", ChainID: 1,
			Currency: ether,
			RPCs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			Explorer: "https://etherscan.io",
		},
		{
			Name: "sepolia", DisplayName: "Sepolia Testnet", ChainID: 11155111,
			Currency:  NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
			RPCs:      []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://rpc.sepolia.org"},
			Explorer:  "https://sepolia.etherscan.io",
			IsTestnet: true,
			FaucetURL: "https://sepoliafaucet.com",
		},
		{
			Name: "holesky", DisplayName: "Holesky Testnet", ChainID: 17000,
			Currency:  NativeCurrency{Name: "Holesky Ether", Symbol: "ETH", Decimals: 18},
			RPCs:      []string{"https://ethereum-holesky-rpc.publicnode.com"},
			Explorer:  "https://holesky.etherscan.io",
			IsTestnet: true,
		},
		{
			Name: "polygon", DisplayName: "Polygon", ChainID: 137,
			Currency: NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
			RPCs:     []string{"https://polygon-bor-rpc.publicnode.com", "https://polygon-rpc.com"},
			Explorer: "https://polygonscan.com",
		},
		{
			Name: "polygon-amoy", DisplayName: "Polygon Amoy", ChainID: 80002,
			Currency:  NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
			RPCs:      []string{"https://rpc-amoy.polygon.technology"},
			Explorer:  "https://amoy.polygonscan.com",
			IsTestnet: true,
			FaucetURL: "https://faucet.polygon.technology",
		},
		{
			Name: "base-sepolia", DisplayName: "Base Sepolia", ChainID: 84532,
			Currency:  ether,
			RPCs:      []string{"https://sepolia.base.org"},
			Explorer:  "https://sepolia.basescan.org",
			IsTestnet: true,
			FaucetURL: "https://www.alchemy.com/faucets/base-sepolia",
		},
	}
}
