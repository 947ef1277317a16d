// Package price values native-currency amounts through CoinGecko.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Fetcher retrieves token prices from CoinGecko.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	currency string
}

// NewFetcher creates a new price fetcher.
func NewFetcher(currency string) *Fetcher {
	if currency == "" {
		currency = "usd"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  defaultBaseURL,
		currency: strings.ToLower(currency),
	}
}

// Currency returns the quote currency, lowercased.
func (f *Fetcher) Currency() string { return f.currency }

// coinGeckoIDs maps chain names to CoinGecko coin IDs. Testnets are valued
// at their mainnet asset's price.
var coinGeckoIDs = map[string]string{
	"ethereum":     "ethereum",
	"sepolia":      "ethereum",
	"holesky":      "ethereum",
	"base-sepolia": "ethereum",
	"polygon":      "polygon-ecosystem-token",
	"polygon-amoy": "polygon-ecosystem-token",
}

// GetPrice returns the price of a chain's native token.
func (f *Fetcher) GetPrice(ctx context.Context, chainName string) (decimal.Decimal, error) {
	id, ok := coinGeckoIDs[strings.ToLower(chainName)]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown chain: %s", chainName)
	}
	prices, err := f.fetchBatch(ctx, []string{id})
	if err != nil {
		return decimal.Zero, err
	}
	p, ok := prices[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("price not available for: %s", id)
	}
	return p, nil
}

// Value converts amount of chainName's native token into the quote currency.
func (f *Fetcher) Value(ctx context.Context, chainName string, amount decimal.Decimal) (decimal.Decimal, error) {
	p, err := f.GetPrice(ctx, chainName)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(p), nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", f.baseURL, strings.Join(ids, ","), f.currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price service returned HTTP %d", resp.StatusCode)
	}

	// Response: {"ethereum":{"usd":1234.56}, ...}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing price response: %w", err)
	}

	prices := make(map[string]decimal.Decimal)
	for id, currencies := range raw {
		if p, ok := currencies[f.currency]; ok {
			prices[id] = p
		}
	}
	return prices, nil
}
