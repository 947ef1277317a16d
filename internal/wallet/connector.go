package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"
)

// ChangeKind classifies a session change notification.
type ChangeKind string

const (
	SessionConnected      ChangeKind = "connected"
	SessionRestored       ChangeKind = "restored"
	SessionAccountChanged ChangeKind = "accountChanged"
	SessionChainChanged   ChangeKind = "chainChanged"
	SessionDisconnected   ChangeKind = "disconnected"
)

// SessionChange is published whenever the connector's session changes.
// Session is nil after a disconnect.
type SessionChange struct {
	Kind    ChangeKind
	Session *Session
}

// ConnectError is a user-facing connection failure. It unwraps to one of
// ErrProviderAbsent, ErrUserRejected, ErrRequestPending or the provider error.
type ConnectError struct {
	Wallet WalletID
	Msg    string
	Err    error
}

func (e *ConnectError) Error() string { return e.Msg }
func (e *ConnectError) Unwrap() error { return e.Err }

// ConnectorConfig configures a Connector.
type ConnectorConfig struct {
	Injected  *Injected
	Store     SessionStore
	UserAgent string // mobile agents get deep links when no provider is present
	DAppURL   string // where deep links point back to
	Logger    zerolog.Logger
}

// Connector owns the wallet session: it connects, restores and tears down
// sessions and follows provider events while connected.
type Connector struct {
	injected  *Injected
	store     SessionStore
	userAgent string
	dappURL   string
	log       zerolog.Logger

	mu       sync.Mutex
	session  *Session
	provider Provider
	sub      event.Subscription
	gen      uint64

	changes event.Feed
}

// NewConnector creates a connector over the given injected providers.
func NewConnector(cfg ConnectorConfig) *Connector {
	store := cfg.Store
	if store == nil {
		store = &MemorySessionStore{}
	}
	return &Connector{
		injected:  cfg.Injected,
		store:     store,
		userAgent: cfg.UserAgent,
		dappURL:   cfg.DAppURL,
		log:       cfg.Logger.With().Str("component", "wallet_connector").Logger(),
	}
}

// Detect reports which brands the connector's injected providers cover.
func (c *Connector) Detect() []Detection {
	return DetectProviders(c.injected)
}

// SubscribeChanges delivers every SessionChange to ch.
func (c *Connector) SubscribeChanges(ch chan<- SessionChange) event.Subscription {
	return c.changes.Subscribe(ch)
}

// Session returns a copy of the current session.
func (c *Connector) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Provider returns the provider backing the current session.
func (c *Connector) Provider() (Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider == nil {
		return nil, ErrNotConnected
	}
	return c.provider, nil
}

// Connect requests account access from the brand's provider and establishes
// a session.
func (c *Connector) Connect(ctx context.Context, id WalletID) (*Session, error) {
	brand := id.Name()

	p, ok := Resolve(c.injected, id)
	if !ok {
		if id == WalletConnect || IsMobileUserAgent(c.userAgent) {
			return nil, &DeepLinkError{Wallet: id, URL: DeepLink(id, c.dappURL)}
		}
		return nil, &ConnectError{
			Wallet: id,
			Msg:    fmt.Sprintf("%s is not installed. Please install %s to continue.", brand, brand),
			Err:    ErrProviderAbsent,
		}
	}

	accounts, err := RequestAccounts(ctx, p)
	if err != nil {
		return nil, connectFailure(id, err)
	}
	if len(accounts) == 0 {
		return nil, &ConnectError{Wallet: id, Msg: brand + " returned no accounts", Err: ErrUserRejected}
	}

	chainID, err := ChainID(ctx, p)
	if err != nil {
		return nil, connectFailure(id, err)
	}

	s := &Session{WalletID: id, Account: accounts[0], ChainID: chainID}
	if err := c.store.Save(PersistedSession{WalletID: id, Account: s.Account}); err != nil {
		c.log.Warn().Err(err).Msg("could not persist wallet session")
	}
	c.establish(p, s, SessionConnected)

	c.log.Info().Str("wallet", string(id)).Str("account", s.Account).Str("chain", chainID).Msg("wallet connected")
	return s, nil
}

// RestoreSession re-establishes a persisted session without prompting when
// the provider still authorizes the stored account. Anything else clears the
// persisted state silently and returns nil.
func (c *Connector) RestoreSession(ctx context.Context) (*Session, error) {
	ps, err := c.store.Load()
	if err != nil || ps == nil {
		return nil, nil
	}

	p, ok := Resolve(c.injected, ps.WalletID)
	if !ok {
		c.clearPersisted()
		return nil, nil
	}

	accounts, err := Accounts(ctx, p)
	if err != nil || !containsAddress(accounts, ps.Account) {
		c.log.Debug().Err(err).Str("wallet", string(ps.WalletID)).Msg("persisted session no longer authorized")
		c.clearPersisted()
		return nil, nil
	}

	chainID, err := ChainID(ctx, p)
	if err != nil {
		c.clearPersisted()
		return nil, nil
	}

	s := &Session{WalletID: ps.WalletID, Account: ps.Account, ChainID: chainID}
	c.establish(p, s, SessionRestored)
	return s, nil
}

// Disconnect clears the in-memory and persisted session. Calling it without
// a session is a no-op.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	had := c.teardownLocked()
	c.mu.Unlock()

	c.clearPersisted()
	if had {
		c.changes.Send(SessionChange{Kind: SessionDisconnected})
	}
}

// Close stops following provider events without touching persisted state.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	c.gen++
}

func (c *Connector) establish(p Provider, s *Session, kind ChangeKind) {
	events := make(chan ProviderEvent, 16)

	c.mu.Lock()
	c.teardownLocked()
	c.gen++
	gen := c.gen
	c.session = s
	c.provider = p
	c.sub = p.SubscribeEvents(events)
	sub := c.sub
	snapshot := *s
	c.mu.Unlock()

	go c.watch(gen, sub, events)
	c.changes.Send(SessionChange{Kind: kind, Session: &snapshot})
}

// teardownLocked drops the live session; it reports whether one existed.
func (c *Connector) teardownLocked() bool {
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	had := c.session != nil
	c.session = nil
	c.provider = nil
	c.gen++
	return had
}

func (c *Connector) watch(gen uint64, sub event.Subscription, events <-chan ProviderEvent) {
	for {
		select {
		case ev := <-events:
			c.handleEvent(gen, ev)
		case <-sub.Err():
			return
		}
	}
}

func (c *Connector) handleEvent(gen uint64, ev ProviderEvent) {
	c.mu.Lock()
	if gen != c.gen || c.session == nil {
		c.mu.Unlock()
		return
	}

	var change SessionChange
	switch ev.Name {
	case EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			c.teardownLocked()
			c.mu.Unlock()
			c.log.Info().Msg("wallet reported no accounts, disconnecting")
			c.clearPersisted()
			c.changes.Send(SessionChange{Kind: SessionDisconnected})
			return
		}
		c.session.Account = ev.Accounts[0]
		if err := c.store.Save(PersistedSession{WalletID: c.session.WalletID, Account: c.session.Account}); err != nil {
			c.log.Warn().Err(err).Msg("could not persist wallet session")
		}
		change.Kind = SessionAccountChanged
	case EventChainChanged:
		c.session.ChainID = ev.ChainID
		change.Kind = SessionChainChanged
	default:
		c.mu.Unlock()
		return
	}
	snapshot := *c.session
	change.Session = &snapshot
	c.mu.Unlock()

	c.changes.Send(change)
}

func (c *Connector) clearPersisted() {
	if err := c.store.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("could not clear persisted wallet session")
	}
}

// connectFailure maps provider errors to user-facing messages.
func connectFailure(id WalletID, err error) error {
	brand := id.Name()
	switch {
	case errors.Is(err, ErrUserRejected):
		return &ConnectError{Wallet: id, Msg: brand + " connection rejected by user", Err: err}
	case errors.Is(err, ErrRequestPending):
		return &ConnectError{Wallet: id, Msg: brand + " connection request already pending. Please open " + brand + " to continue.", Err: err}
	}
	return &ConnectError{Wallet: id, Msg: fmt.Sprintf("%s connection failed: %s", brand, err.Error()), Err: err}
}

func containsAddress(list []string, addr string) bool {
	for _, a := range list {
		if strings.EqualFold(a, addr) {
			return true
		}
	}
	return false
}
