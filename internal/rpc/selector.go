// Package rpc chooses which of a chain's JSON-RPC endpoints to talk to.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/chain"
)

// ErrNoHealthyEndpoint is returned when no endpoint answered.
var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoint available")

// Strategy decides how endpoints are ranked.
type Strategy string

const (
	// StrategyFastest pings every endpoint and keeps the quickest one that
	// is not lagging behind the head.
	StrategyFastest Strategy = "fastest"
	// StrategyFailover takes endpoints in configured order and uses the
	// first one that answers.
	StrategyFailover Strategy = "failover"

	// Endpoints more than this many blocks behind the best are skipped.
	maxLag = 3

	defaultPingTimeout = 5 * time.Second
)

// ParseStrategy maps a config value to a Strategy. Empty means fastest.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyFastest:
		return StrategyFastest, nil
	case StrategyFailover:
		return StrategyFailover, nil
	}
	return "", fmt.Errorf("unknown RPC strategy %q (want fastest or failover)", s)
}

// Endpoint is the outcome of probing one URL.
type Endpoint struct {
	URL     string
	Latency time.Duration
	Block   uint64
	Err     error
}

// Healthy reports whether the ping succeeded.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Pinger measures one endpoint; *chain.EVMClient satisfies it.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, uint64, error)
}

// Selector pings endpoints and picks one.
type Selector struct {
	strategy Strategy
	timeout  time.Duration
	dial     func(url string) Pinger
}

// NewSelector returns a selector using strategy.
func NewSelector(strategy Strategy) *Selector {
	return &Selector{
		strategy: strategy,
		timeout:  defaultPingTimeout,
		dial:     func(url string) Pinger { return chain.NewEVMClient(url) },
	}
}

// PingAll pings every URL in parallel. Results keep the input order.
func (s *Selector) PingAll(ctx context.Context, urls []string) []Endpoint {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lat, block, err := s.dial(u).Ping(ctx)
			out[i] = Endpoint{URL: u, Latency: lat, Block: block, Err: err}
		}()
	}
	wg.Wait()
	return out
}

// Best returns the URL to use among urls. A single URL is returned without
// probing.
func (s *Selector) Best(ctx context.Context, urls []string) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyEndpoint
	case 1:
		return urls[0], nil
	}

	if s.strategy == StrategyFailover {
		for _, u := range urls {
			ep := s.PingAll(ctx, []string{u})[0]
			if ep.Healthy() {
				return u, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
		}
		return "", ErrNoHealthyEndpoint
	}

	winner, err := Fastest(s.PingAll(ctx, urls))
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}

// Fastest picks the lowest-latency healthy endpoint within maxLag blocks of
// the best block seen. Ties go to the earlier endpoint.
func Fastest(endpoints []Endpoint) (Endpoint, error) {
	var head uint64
	for _, e := range endpoints {
		if e.Healthy() && e.Block > head {
			head = e.Block
		}
	}

	var (
		winner Endpoint
		found  bool
	)
	for _, e := range endpoints {
		if !e.Healthy() || head-e.Block > maxLag {
			continue
		}
		if !found || e.Latency < winner.Latency {
			winner, found = e, true
		}
	}
	if !found {
		return Endpoint{}, ErrNoHealthyEndpoint
	}
	return winner, nil
}
