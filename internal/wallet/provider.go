package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
)

// EIP-1193 / EIP-1474 error codes surfaced by providers.
const (
	CodeUserRejected   = 4001
	CodeUnauthorized   = 4100
	CodeUnsupported    = 4200
	CodeDisconnected   = 4900
	CodeUnknownChain   = 4902
	CodeRequestPending = -32002
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Provider event names.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// Sentinel errors shared by wallet and network flows.
var (
	ErrProviderAbsent = errors.New("wallet provider not installed")
	ErrUserRejected   = errors.New("request rejected by user")
	ErrRequestPending = errors.New("request already pending")
	ErrNotConnected   = errors.New("no wallet connected")
)

// ProviderError is an error object returned by a provider request.
type ProviderError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Is maps well-known codes onto the package sentinels.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrUserRejected:
		return e.Code == CodeUserRejected
	case ErrRequestPending:
		return e.Code == CodeRequestPending
	}
	return false
}

// NewProviderError builds a ProviderError.
func NewProviderError(code int, format string, args ...any) *ProviderError {
	return &ProviderError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts a provider error code, or 0 when err carries none.
func ErrorCode(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// ProviderEvent is a provider-originated notification.
type ProviderEvent struct {
	Name     string   // accountsChanged | chainChanged
	Accounts []string // accountsChanged
	ChainID  string   // chainChanged, 0x-hex
}

// Provider is the EIP-1193 surface a wallet exposes to the application.
type Provider interface {
	// Request performs one JSON-RPC method call. Errors from the wallet are
	// *ProviderError values.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	// SubscribeEvents delivers accountsChanged / chainChanged notifications.
	SubscribeEvents(ch chan<- ProviderEvent) event.Subscription
	// Flags reports the brand markers of this provider.
	Flags() Flags
}

// RequestAccounts calls eth_requestAccounts.
func RequestAccounts(ctx context.Context, p Provider) ([]string, error) {
	return requestStrings(ctx, p, "eth_requestAccounts")
}

// Accounts calls eth_accounts.
func Accounts(ctx context.Context, p Provider) ([]string, error) {
	return requestStrings(ctx, p, "eth_accounts")
}

// ChainID calls eth_chainId.
func ChainID(ctx context.Context, p Provider) (string, error) {
	raw, err := p.Request(ctx, "eth_chainId")
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("parsing eth_chainId result: %w", err)
	}
	return id, nil
}

// PersonalSign asks the provider to sign message with account's key.
func PersonalSign(ctx context.Context, p Provider, message, account string) (string, error) {
	raw, err := p.Request(ctx, "personal_sign", hexutil.Encode([]byte(message)), account)
	if err != nil {
		return "", err
	}
	var sig string
	if err := json.Unmarshal(raw, &sig); err != nil {
		return "", fmt.Errorf("parsing personal_sign result: %w", err)
	}
	return sig, nil
}

// TxRequest is the eth_sendTransaction parameter object.
type TxRequest struct {
	From  string `json:"from"`
	To    string `json:"to,omitempty"`
	Value string `json:"value,omitempty"` // 0x-hex wei
	Data  string `json:"data,omitempty"`
	Gas   string `json:"gas,omitempty"`
}

// SendTransaction calls eth_sendTransaction and returns the tx hash.
func SendTransaction(ctx context.Context, p Provider, tx TxRequest) (string, error) {
	raw, err := p.Request(ctx, "eth_sendTransaction", tx)
	if err != nil {
		return "", err
	}
	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil {
		return "", fmt.Errorf("parsing eth_sendTransaction result: %w", err)
	}
	return hash, nil
}

func requestStrings(ctx context.Context, p Provider, method string) ([]string, error) {
	raw, err := p.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing %s result: %w", method, err)
	}
	return out, nil
}
