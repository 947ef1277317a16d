package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Session is a live wallet connection.
type Session struct {
	WalletID WalletID `json:"walletId"`
	Account  string   `json:"account"`
	ChainID  string   `json:"chainId"`
}

// PersistedSession is the part of a session that survives restarts. The
// chain id is always re-queried from the provider.
type PersistedSession struct {
	WalletID WalletID `json:"walletId"`
	Account  string   `json:"account"`
}

// SessionStore persists the last connected (walletId, account).
type SessionStore interface {
	Load() (*PersistedSession, error) // nil, nil when nothing is stored
	Save(PersistedSession) error
	Clear() error
}

// FileSessionStore keeps the session in a 0600 JSON file.
type FileSessionStore struct {
	path string
}

// NewFileSessionStore creates a file-backed session store.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Load() (*PersistedSession, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ps PersistedSession
	if err := json.Unmarshal(data, &ps); err != nil || ps.WalletID == "" || ps.Account == "" {
		// a corrupt file is treated as no session
		return nil, nil
	}
	return &ps, nil
}

func (s *FileSessionStore) Save(ps PersistedSession) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return err
	}
	_ = os.Chmod(s.path, 0o600)
	return nil
}

func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemorySessionStore keeps the session in memory (for tests).
type MemorySessionStore struct {
	mu sync.Mutex
	ps *PersistedSession
}

func (s *MemorySessionStore) Load() (*PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ps == nil {
		return nil, nil
	}
	cp := *s.ps
	return &cp, nil
}

func (s *MemorySessionStore) Save(ps PersistedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ps = &ps
	return nil
}

func (s *MemorySessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ps = nil
	return nil
}
