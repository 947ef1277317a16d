package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/network"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Supported networks and the preferred network",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := newGuard(newRegistry())
		if err != nil {
			return err
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Display Name", Width: 20},
			{Title: "Chain ID", Width: 10},
			{Title: "Symbol", Width: 7},
			{Title: "Testnet", Width: 8},
			{Title: "Preferred", Width: 9},
		})
		for _, c := range g.Supported() {
			testnet, preferred := "", ""
			if c.IsTestnet {
				testnet = "yes"
			}
			if c.ChainID == g.Preferred().ChainID {
				preferred = ui.StyleSuccess.Render("★")
			}
			t.AddRow(ui.Row{
				ui.ChainName(c.Name),
				c.DisplayName,
				fmt.Sprintf("%d", c.ChainID),
				c.Currency.Symbol,
				testnet,
				preferred,
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d supported networks", len(g.Supported()))))
		return nil
	},
}

var networkSwitchCmd = &cobra.Command{
	Use:   "switch",
	Short: "Move the connected wallet to the preferred network",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg := newRegistry()
		g, err := newGuard(reg)
		if err != nil {
			return err
		}
		conn, release := openConnector(ctx, reg)
		defer release()

		_, p, err := requireSession(ctx, conn)
		if err != nil {
			return err
		}

		outcome, err := g.SwitchToPreferredChain(ctx, p)
		if err != nil {
			return err
		}
		fmt.Println(outcomeLine(outcome, g.Preferred()))
		return nil
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use <chain>",
	Short: "Set the preferred network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		c, err := newRegistry().GetByName(name)
		if err != nil {
			return fmt.Errorf("unknown chain %q; run `infinity network list`", name)
		}
		cfg.PreferredChain = c.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Preferred network set to %s", ui.ChainName(c.DisplayName))))
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkSwitchCmd, networkUseCmd)
}

// outcomeLine describes a switch outcome for the terminal.
func outcomeLine(o network.Outcome, preferred chain.Chain) string {
	switch o {
	case network.AlreadyOn:
		return ui.Success("Already on " + preferred.DisplayName)
	case network.Switched:
		return ui.Success("Switched to " + preferred.DisplayName)
	case network.Added:
		return ui.Success(preferred.DisplayName+" added to your wallet") + "\n" +
			ui.Hint("Run `infinity network switch` again to switch to it")
	case network.Cancelled:
		return ui.Meta("Network switch cancelled.")
	}
	return ui.Meta(o.String())
}
