package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/infinity/internal/chain"
)

// ProviderState is what a keystore provider remembers between runs: the
// accounts the user authorized, networks added through
// wallet_addEthereumChain and the selected network.
type ProviderState struct {
	Accounts      []string               `json:"accounts"`
	AddedChains   []chain.AddChainParams `json:"added_chains,omitempty"`
	SelectedChain string                 `json:"selected_chain,omitempty"` // 0x-hex
}

// PermissionStore persists ProviderState per brand in one JSON file. A zero
// path keeps everything in memory.
type PermissionStore struct {
	mu    sync.Mutex
	path  string
	state map[string]*ProviderState
}

// NewPermissionStore loads (or initialises) the store at path.
func NewPermissionStore(path string) (*PermissionStore, error) {
	ps := &PermissionStore{path: path, state: make(map[string]*ProviderState)}
	if path == "" {
		return ps, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ps, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &ps.state); err != nil {
		return nil, err
	}
	if ps.state == nil {
		ps.state = make(map[string]*ProviderState)
	}
	return ps, nil
}

// Get returns a copy of the state for key.
func (p *PermissionStore) Get(key string) ProviderState {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.state[key]
	if !ok {
		return ProviderState{}
	}
	return ProviderState{
		Accounts:      slices.Clone(s.Accounts),
		AddedChains:   slices.Clone(s.AddedChains),
		SelectedChain: s.SelectedChain,
	}
}

// IsAuthorized reports whether account was granted to key.
func (p *PermissionStore) IsAuthorized(key, account string) bool {
	return containsAddress(p.Get(key).Accounts, account)
}

// Grant authorizes account for key.
func (p *PermissionStore) Grant(key, account string) error {
	return p.update(key, func(s *ProviderState) {
		if !containsAddress(s.Accounts, account) {
			s.Accounts = append(s.Accounts, account)
		}
	})
}

// Revoke removes every authorization for key.
func (p *PermissionStore) Revoke(key string) error {
	return p.update(key, func(s *ProviderState) {
		s.Accounts = nil
	})
}

// AddChain remembers a network added through wallet_addEthereumChain.
func (p *PermissionStore) AddChain(key string, params chain.AddChainParams) error {
	return p.update(key, func(s *ProviderState) {
		s.AddedChains = slices.DeleteFunc(s.AddedChains, func(c chain.AddChainParams) bool {
			return strings.EqualFold(c.ChainID, params.ChainID)
		})
		s.AddedChains = append(s.AddedChains, params)
	})
}

// Select records the currently selected network.
func (p *PermissionStore) Select(key, chainID string) error {
	return p.update(key, func(s *ProviderState) {
		s.SelectedChain = chainID
	})
}

func (p *PermissionStore) update(key string, fn func(*ProviderState)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.state[key]
	if !ok {
		s = &ProviderState{}
		p.state[key] = s
	}
	fn(s)
	return p.saveLocked()
}

func (p *PermissionStore) saveLocked() error {
	if p.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o600)
}
