// Package network gates flows on the wallet's chain and drives the
// switch/add-chain dialogue with the provider.
package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/rs/zerolog"
)

// ErrUnsupportedChain is returned by Check for chains outside the allow-list.
var ErrUnsupportedChain = errors.New("unsupported network")

// Outcome is the result of SwitchToPreferredChain.
type Outcome int

const (
	AlreadyOn Outcome = iota
	Switched
	Added // the wallet now knows the chain; switching is a separate action
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case AlreadyOn:
		return "already on preferred network"
	case Switched:
		return "switched"
	case Added:
		return "network added"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Guard holds the supported-chain allow-list and the preferred chain.
type Guard struct {
	registry  *chain.Registry
	supported []chain.Chain
	allowed   map[int64]bool
	preferred chain.Chain
	prompter  wallet.Prompter
	log       zerolog.Logger
}

// NewGuard builds a guard. supported and preferred are registry names; the
// preferred chain is always allowed.
func NewGuard(reg *chain.Registry, supported []string, preferred string, prompter wallet.Prompter, log zerolog.Logger) (*Guard, error) {
	pref, err := reg.GetByName(preferred)
	if err != nil {
		return nil, fmt.Errorf("preferred chain %q: %w", preferred, err)
	}
	if prompter == nil {
		prompter = wallet.AutoApprove
	}
	g := &Guard{
		registry:  reg,
		allowed:   make(map[int64]bool),
		preferred: *pref,
		prompter:  prompter,
		log:       log.With().Str("component", "network_guard").Logger(),
	}
	for _, name := range append([]string{preferred}, supported...) {
		c, err := reg.GetByName(name)
		if err != nil {
			return nil, fmt.Errorf("supported chain %q: %w", name, err)
		}
		if g.allowed[c.ChainID] {
			continue
		}
		g.allowed[c.ChainID] = true
		g.supported = append(g.supported, *c)
	}
	return g, nil
}

// Preferred returns the chain flows are steered towards.
func (g *Guard) Preferred() chain.Chain { return g.preferred }

// Supported returns the allow-list, preferred chain first.
func (g *Guard) Supported() []chain.Chain {
	out := make([]chain.Chain, len(g.supported))
	copy(out, g.supported)
	return out
}

// IsSupportedChain reports whether the 0x-hex (or decimal) chain id is on the
// allow-list.
func (g *Guard) IsSupportedChain(chainID string) bool {
	id, err := chain.ParseChainID(chainID)
	if err != nil {
		return false
	}
	return g.allowed[id]
}

// Check returns ErrUnsupportedChain, naming the chain, when chainID is not
// allowed.
func (g *Guard) Check(chainID string) error {
	if g.IsSupportedChain(chainID) {
		return nil
	}
	return fmt.Errorf("%w: %s (switch to %s)", ErrUnsupportedChain, g.registry.DisplayNameFor(chainID), g.preferred.DisplayName)
}

// SwitchToPreferredChain asks the user, then the provider, to move to the
// preferred chain. An unknown-chain reply triggers wallet_addEthereumChain
// and reports Added without retrying the switch. User rejection at any
// point is Cancelled, not an error.
func (g *Guard) SwitchToPreferredChain(ctx context.Context, p wallet.Provider) (Outcome, error) {
	current, err := wallet.ChainID(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("reading current network: %w", err)
	}
	target := g.preferred.HexID()
	if id, err := chain.ParseChainID(current); err == nil && id == g.preferred.ChainID {
		return AlreadyOn, nil
	}

	ok, err := g.prompter.Approve(ctx, wallet.Prompt{
		Kind:  wallet.PromptSwitchChain,
		Title: "Switch network?",
		Details: [][2]string{
			{"Current", g.registry.DisplayNameFor(current)},
			{"Preferred", g.preferred.DisplayName},
		},
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		return Cancelled, nil
	}

	_, err = p.Request(ctx, "wallet_switchEthereumChain", map[string]string{"chainId": target})
	switch {
	case err == nil:
		g.log.Info().Str("chain", g.preferred.Name).Msg("switched network")
		return Switched, nil
	case errors.Is(err, wallet.ErrUserRejected):
		return Cancelled, nil
	case wallet.ErrorCode(err) == wallet.CodeUnknownChain:
		return g.addPreferred(ctx, p)
	}
	return 0, fmt.Errorf("failed to switch to %s: %w", g.preferred.DisplayName, err)
}

func (g *Guard) addPreferred(ctx context.Context, p wallet.Provider) (Outcome, error) {
	_, err := p.Request(ctx, "wallet_addEthereumChain", g.preferred.AddParams())
	switch {
	case err == nil:
		g.log.Info().Str("chain", g.preferred.Name).Msg("network added to wallet")
		return Added, nil
	case errors.Is(err, wallet.ErrUserRejected):
		return Cancelled, nil
	}
	return 0, fmt.Errorf("failed to add %s: %w", g.preferred.DisplayName, err)
}
