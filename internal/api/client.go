package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/domain"
)

// StatusError is a non-2xx reply from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to the Infinity Ventures API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SupportedWallets(ctx context.Context) (*SupportedWalletsResponse, error) {
	var out SupportedWalletsResponse
	return &out, c.do(ctx, http.MethodGet, "/api/supported-wallets", nil, &out)
}

func (c *Client) NetworkInfo(ctx context.Context) (*NetworkInfoResponse, error) {
	var out NetworkInfoResponse
	return &out, c.do(ctx, http.MethodGet, "/api/network-info", nil, &out)
}

func (c *Client) Templates(ctx context.Context) (*TemplatesResponse, error) {
	var out TemplatesResponse
	return &out, c.do(ctx, http.MethodGet, "/api/investment/templates", nil, &out)
}

// UserInvestments lists the positions recorded for address.
func (c *Client) UserInvestments(ctx context.Context, address string) (*InvestmentsResponse, error) {
	var out InvestmentsResponse
	return &out, c.do(ctx, http.MethodGet, "/api/investment/user-investments/"+url.PathEscape(address), nil, &out)
}

// Positions is UserInvestments without the envelope.
func (c *Client) Positions(ctx context.Context, address string) ([]domain.Position, error) {
	resp, err := c.UserInvestments(ctx, address)
	if err != nil {
		return nil, err
	}
	return resp.Investments, nil
}

// GeneratePDF submits the serialized terms payload and returns the
// service's hash of it.
func (c *Client) GeneratePDF(ctx context.Context, payload []byte) (*GenerateResponse, error) {
	var out GenerateResponse
	return &out, c.do(ctx, http.MethodPost, "/api/external/generate-pdf", json.RawMessage(payload), &out)
}

// UploadIPFS stores content and returns its locator.
func (c *Client) UploadIPFS(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	var out UploadResponse
	return &out, c.do(ctx, http.MethodPost, "/api/external/upload-ipfs", req, &out)
}

// SaveInvestment records a mint in the position index.
func (c *Client) SaveInvestment(ctx context.Context, req SaveRequest) (*SaveResponse, error) {
	var out SaveResponse
	return &out, c.do(ctx, http.MethodPost, "/api/investment/save", req, &out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e ErrorResponse
		_ = json.Unmarshal(data, &e)
		return &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}
