package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	remoteDialTimeout = 30 * time.Second
	remoteWriteWait   = 10 * time.Second
)

// RemoteProvider speaks EIP-1193 to a wallet running elsewhere (a mobile
// wallet bridge or browser extension relay) over a JSON-RPC websocket.
// Notifications whose method is accountsChanged or chainChanged are
// republished as ProviderEvents.
type RemoteProvider struct {
	url   string
	flags Flags
	log   zerolog.Logger

	conn   *websocket.Conn
	cancel context.CancelFunc

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan remoteReply
	closed  bool // no new requests
	stopped bool // Close was called

	feed event.Feed
}

type remoteMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ProviderError  `json:"error,omitempty"`
}

type remoteRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type remoteReply struct {
	result json.RawMessage
	err    error
}

// DialRemoteProvider connects to the bridge at url and starts the read loop.
func DialRemoteProvider(ctx context.Context, url string, id WalletID, log zerolog.Logger) (*RemoteProvider, error) {
	dialCtx, cancel := context.WithTimeout(ctx, remoteDialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing wallet bridge %s: %w", url, err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	r := &RemoteProvider{
		url:     url,
		flags:   FlagsFor(id),
		log:     log.With().Str("component", "remote_provider").Str("wallet", string(id)).Logger(),
		conn:    conn,
		cancel:  connCancel,
		pending: make(map[uint64]chan remoteReply),
	}
	go r.readLoop(connCtx)

	r.log.Info().Str("url", url).Msg("connected to wallet bridge")
	return r, nil
}

// Flags reports the brand markers for this provider.
func (r *RemoteProvider) Flags() Flags { return r.flags }

// SubscribeEvents delivers accountsChanged / chainChanged notifications.
func (r *RemoteProvider) SubscribeEvents(ch chan<- ProviderEvent) event.Subscription {
	return r.feed.Subscribe(ch)
}

// Request sends one JSON-RPC call and waits for its response.
func (r *RemoteProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, NewProviderError(CodeDisconnected, "The provider is disconnected.")
	}
	r.nextID++
	id := r.nextID
	reply := make(chan remoteReply, 1)
	r.pending[id] = reply
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	writeCtx, cancel := context.WithTimeout(ctx, remoteWriteWait)
	err := wsjson.Write(writeCtx, r.conn, remoteRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case res := <-reply:
		return res.result, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the bridge connection down. Pending requests fail with 4900.
func (r *RemoteProvider) Close() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.closed = true
	r.mu.Unlock()

	defer r.cancel()
	err := r.conn.Close(websocket.StatusNormalClosure, "")
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		return fmt.Errorf("closing wallet bridge: %w", err)
	}
	return nil
}

func (r *RemoteProvider) readLoop(ctx context.Context) {
	defer r.failPending()

	for {
		var msg remoteMessage
		if err := wsjson.Read(ctx, r.conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				r.log.Info().Int("status", int(status)).Msg("wallet bridge closed")
			case ctx.Err() != nil:
				r.log.Debug().Msg("read loop cancelled")
			default:
				r.log.Error().Err(err).Msg("wallet bridge read failed")
			}
			return
		}

		if msg.ID != nil && msg.Method == "" {
			r.deliver(*msg.ID, msg)
			continue
		}
		r.notify(msg)
	}
}

func (r *RemoteProvider) deliver(id uint64, msg remoteMessage) {
	r.mu.Lock()
	ch, ok := r.pending[id]
	r.mu.Unlock()
	if !ok {
		r.log.Debug().Uint64("id", id).Msg("response for unknown request")
		return
	}
	res := remoteReply{result: msg.Result}
	if msg.Error != nil {
		res = remoteReply{err: msg.Error}
	}
	select {
	case ch <- res:
	default:
	}
}

func (r *RemoteProvider) notify(msg remoteMessage) {
	switch msg.Method {
	case EventAccountsChanged:
		var accounts []string
		if err := unmarshalFirst(msg.Params, &accounts); err != nil {
			r.log.Warn().Err(err).Msg("bad accountsChanged payload")
			return
		}
		if accounts == nil {
			accounts = []string{}
		}
		r.feed.Send(ProviderEvent{Name: EventAccountsChanged, Accounts: accounts})
	case EventChainChanged:
		var chainID string
		if err := unmarshalFirst(msg.Params, &chainID); err != nil {
			r.log.Warn().Err(err).Msg("bad chainChanged payload")
			return
		}
		r.feed.Send(ProviderEvent{Name: EventChainChanged, ChainID: chainID})
	default:
		r.log.Debug().Str("method", msg.Method).Msg("ignoring notification")
	}
}

func (r *RemoteProvider) failPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, ch := range r.pending {
		select {
		case ch <- remoteReply{err: NewProviderError(CodeDisconnected, "The provider is disconnected.")}:
		default:
		}
		delete(r.pending, id)
	}
}

// unmarshalFirst accepts either [value] or value.
func unmarshalFirst(raw json.RawMessage, out any) error {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		if json.Unmarshal(list[0], out) == nil {
			return nil
		}
	}
	return json.Unmarshal(raw, out)
}
