package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/dashboard"
	"github.com/Mohsinsiddi/infinity/internal/ens"
	"github.com/Mohsinsiddi/infinity/internal/price"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	dashboardWatch    bool
	dashboardInterval time.Duration
	dashboardNoPrice  bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [address|ens-name]",
	Short: "Show investment positions",
	Long: `Show the positions indexed for an investor: principal, target APY,
progress to maturity and days remaining, with portfolio totals.

Without an address the connected wallet's account is used.

Examples:
  infinity dashboard
  infinity dashboard investor.eth
  infinity dashboard 0xAbC... --watch --interval 30s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg := newRegistry()

		investor, err := dashboardInvestor(ctx, reg, args)
		if err != nil {
			return err
		}
		net, err := reg.GetByName(cfg.PreferredChain)
		if err != nil {
			return fmt.Errorf("preferred chain %q: %w", cfg.PreferredChain, err)
		}
		loader := newDashboardLoader(*net)

		if dashboardWatch {
			p := ui.NewLiveView("Infinity Portfolio", dashboardInterval, func() (string, error) {
				return renderDashboard(ctx, loader, investor, *net)
			})
			_, err := p.Run()
			return err
		}

		spin := ui.NewSpinner("Loading positions...")
		spin.Start()
		out, err := renderDashboard(ctx, loader, investor, *net)
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().BoolVarP(&dashboardWatch, "watch", "w", false, "refresh continuously")
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 15*time.Second, "refresh interval with --watch")
	dashboardCmd.Flags().BoolVar(&dashboardNoPrice, "no-price", false, "skip fiat valuation")
}

// dashboardInvestor picks the address to show: the argument, else the
// connected account, else the default wallet.
func dashboardInvestor(ctx context.Context, reg *chain.Registry, args []string) (string, error) {
	if len(args) == 1 {
		if ens.IsName(args[0]) {
			r, err := newResolver(ctx)
			if err != nil {
				return "", err
			}
			return r.Resolve(ctx, args[0])
		}
		if !common.IsHexAddress(args[0]) {
			return "", fmt.Errorf("invalid address %q", args[0])
		}
		return common.HexToAddress(args[0]).Hex(), nil
	}

	conn, release := openConnector(ctx, reg)
	defer release()
	if s, err := conn.RestoreSession(ctx); err == nil && s != nil {
		return s.Account, nil
	}
	if w := newWalletManager().Default(); w != nil {
		return w.Address, nil
	}
	return "", errNoSession
}

func newDashboardLoader(net chain.Chain) *dashboard.Loader {
	var valuer dashboard.Valuer
	if !dashboardNoPrice {
		valuer = price.NewFetcher(cfg.PriceCurrency)
	}
	return dashboard.NewLoader(newAPIClient(), valuer, net.Name, appLog)
}

func renderDashboard(ctx context.Context, loader *dashboard.Loader, investor string, net chain.Chain) (string, error) {
	v, err := loader.Load(ctx, investor)
	if err != nil {
		return "", err
	}
	return dashboard.Render(v, net.Currency.Symbol), nil
}
