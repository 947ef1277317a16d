package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/infinity/internal/ens"
	"github.com/Mohsinsiddi/infinity/internal/price"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var balanceNetwork string

var balanceCmd = &cobra.Command{
	Use:   "balance [wallet|address|ens-name]",
	Short: "Check a native balance",
	Long: `Check the native balance of a wallet on the preferred network, with its
value in the configured price currency.

Examples:
  infinity balance
  infinity balance alice
  infinity balance investor.eth
  infinity balance 0xABC... --network holesky`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var ref string
		if len(args) == 1 {
			ref = args[0]
		}
		address, err := resolveAddress(ctx, ref)
		if err != nil {
			return err
		}

		name := balanceNetwork
		if name == "" {
			name = cfg.PreferredChain
		}
		c, err := newRegistry().GetByName(name)
		if err != nil {
			return fmt.Errorf("unknown chain %q; run `infinity network list`", name)
		}

		spin := ui.NewSpinner(fmt.Sprintf("Fetching balance on %s...", ui.ChainName(c.DisplayName)))
		spin.Start()
		client, err := rpcClient(ctx, *c)
		if err != nil {
			spin.Stop()
			return err
		}
		bal, err := client.GetBalance(ctx, address)
		spin.Stop()
		if err != nil {
			return err
		}

		value := "n/a"
		f := price.NewFetcher(cfg.PriceCurrency)
		if v, err := f.Value(ctx, c.Name, decimal.NewFromBigInt(bal.Wei, -18)); err == nil {
			value = v.StringFixed(2) + " " + strings.ToUpper(f.Currency())
		} else {
			appLog.Debug().Err(err).Str("chain", c.Name).Msg("price unavailable")
		}

		fmt.Println(ui.KeyValueBlock("Balance on "+c.DisplayName, [][2]string{
			{"Address", ui.Addr(address)},
			{"Network", c.DisplayName},
			{"Balance", bal.ETH + " " + c.Currency.Symbol},
			{"Value", value},
		}))
		return nil
	},
}

func init() {
	balanceCmd.Flags().StringVar(&balanceNetwork, "network", "", "chain to query (default: preferred chain)")
}

// resolveAddress turns a wallet name, ENS name or hex address into an
// address. Empty means the default wallet.
func resolveAddress(ctx context.Context, ref string) (string, error) {
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref).Hex(), nil
	}
	if ens.IsName(ref) {
		r, err := newResolver(ctx)
		if err != nil {
			return "", err
		}
		return r.Resolve(ctx, ref)
	}
	mgr := newWalletManager()
	if ref == "" {
		w := mgr.Default()
		if w == nil {
			return "", fmt.Errorf("no wallet specified; pass an address or set a default with `infinity wallet use <name>`")
		}
		return w.Address, nil
	}
	w, err := mgr.Get(ref)
	if err != nil {
		return "", fmt.Errorf("wallet %q not found; run `infinity wallet list` or pass an address", ref)
	}
	return w.Address, nil
}
