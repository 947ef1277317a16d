package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	walletKeyFlag string

	attachWallet string
	attachURL    string
	attachChain  string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets and the wallet connection",
	Long: `Manage signing wallets, the wallet providers the client can see, and the
connected wallet session.

A provider is what a browser extension is to a web page: MetaMask, Trust
Wallet, Coinbase Wallet or WalletConnect. Attach one backed by a local
signing wallet (keys in the OS keychain) or by a remote wallet daemon over
a websocket, then connect to it.`,
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()

		if walletKeyFlag != "" {
			w, err := mgr.AddWithKey(name, walletKeyFlag)
			if err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
			fmt.Println(ui.Hint(fmt.Sprintf("Attach it to a provider with: infinity wallet attach metamask --wallet %s", name)))
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("address required for watch-only wallet\n  Usage: infinity wallet add <name> <address>\n  Or for signing: infinity wallet add <name> --key <private-key>")
		}
		w, err := mgr.AddWatchOnly(name, args[1])
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address))))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new signing wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()
		w, hexKey, err := mgr.Generate(name)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("  %s  %s\n", ui.Meta("Wallet :"), ui.Val(w.Name))
		fmt.Printf("  %s  %s\n\n", ui.Meta("Address:"), ui.Addr(w.Address))

		box := ui.DangerBox(
			ui.Warn("SAVE YOUR PRIVATE KEY. It is shown only once. Never share it.") + "\n\n" +
				ui.Val(hexKey) + "\n\n" +
				ui.Hint("Store it in a password manager. Lose it and the wallet is gone."),
		)
		fmt.Println(box)
		fmt.Println()
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		wallets := mgr.List()

		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets configured yet."))
			fmt.Println(ui.Hint("Create one with: infinity wallet generate myWallet"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 44},
			{Title: "Type", Width: 12},
			{Title: "Default", Width: 8},
		})

		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = ui.StyleSuccess.Render("✓")
			}
			t.AddRow(ui.Row{
				ui.Val(w.Name),
				ui.Addr(w.Address),
				ui.Meta(walletTypeLabel(w.Type)),
				def,
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !ui.ConfirmDanger(fmt.Sprintf("Remove wallet %q?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		if err := newWalletManager().Remove(name); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := newWalletManager().SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q", name)))
		return nil
	},
}

var walletAttachCmd = &cobra.Command{
	Use:   "attach <brand>",
	Short: "Make a wallet provider visible to the client",
	Long: `Register a provider for a wallet brand.

  # in-process provider signing with a keychain wallet
  infinity wallet attach metamask --wallet alice --chain sepolia

  # external wallet daemon speaking EIP-1193 over a websocket
  infinity wallet attach coinbase --url ws://127.0.0.1:1248`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := wallet.ParseWalletID(args[0])
		if err != nil {
			return err
		}
		entry, err := providerEntry(id, attachWallet, attachURL, attachChain)
		if err != nil {
			return err
		}
		cfg.AddProvider(entry)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s provider attached (%s)", id.Name(), entry.Kind)))
		fmt.Println(ui.Hint("Connect with: infinity wallet connect " + string(id)))
		return nil
	},
}

var walletDetachCmd = &cobra.Command{
	Use:   "detach <brand>",
	Short: "Remove a wallet provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveProvider(strings.ToLower(args[0])); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s provider detached", args[0])))
		return nil
	},
}

// walletPickerItems lists every brand; undetected ones stay selectable so
// the user gets the install hint or deep link.
func walletPickerItems(dets []wallet.Detection) []ui.PickerItem {
	items := make([]ui.PickerItem, 0, len(dets))
	for _, d := range dets {
		sub := string(d.Wallet.ID)
		if !d.Installed {
			sub += " · not detected"
		}
		items = append(items, ui.PickerItem{Label: d.Wallet.Name, SubLabel: sub, Value: string(d.Wallet.ID), Dim: !d.Installed})
	}
	return items
}

var walletProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Show which wallet brands are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		inj, closeProviders := buildInjected(cmd.Context(), newRegistry())
		defer closeProviders()

		t := ui.NewTable([]ui.Column{
			{Title: "Wallet", Width: 18},
			{Title: "ID", Width: 14},
			{Title: "Status", Width: 16},
		})
		for _, d := range wallet.DetectProviders(inj) {
			status := ui.Meta("not detected")
			if d.Installed {
				status = ui.StyleSuccess.Render("available")
			}
			t.AddRow(ui.Row{d.Wallet.Name, string(d.Wallet.ID), status})
		}
		fmt.Println(t.Render())
		return nil
	},
}

var walletConnectCmd = &cobra.Command{
	Use:   "connect [brand]",
	Short: "Connect a wallet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg := newRegistry()
		conn, release := openConnector(ctx, reg)
		defer release()

		var brand string
		if len(args) == 1 {
			brand = args[0]
		} else {
			picked, err := ui.PickItem("Connect Wallet", walletPickerItems(conn.Detect()))
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
			brand = picked
		}

		id, err := wallet.ParseWalletID(brand)
		if err != nil {
			return err
		}
		s, err := conn.Connect(ctx, id)
		if err != nil {
			return err
		}
		printSession(reg, s)
		return guardHint(reg, s.ChainID)
	},
}

var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connected wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := newRegistry()
		conn, release := openConnector(cmd.Context(), reg)
		defer release()

		s, err := conn.RestoreSession(cmd.Context())
		if err != nil {
			return err
		}
		if s == nil {
			fmt.Println(ui.Info("No wallet connected."))
			fmt.Println(ui.Hint("Connect with: infinity wallet connect <brand>"))
			return nil
		}
		printSession(reg, s)
		return guardHint(reg, s.ChainID)
	},
}

var walletDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the connected wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, release := openConnector(cmd.Context(), newRegistry())
		defer release()
		conn.Disconnect()
		fmt.Println(ui.Success("Wallet disconnected"))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key for signing wallet (stored in OS keychain)")
	walletAttachCmd.Flags().StringVar(&attachWallet, "wallet", "", "signing wallet backing a keystore provider (default: default wallet)")
	walletAttachCmd.Flags().StringVar(&attachURL, "url", "", "ws:// endpoint of a remote wallet daemon")
	walletAttachCmd.Flags().StringVar(&attachChain, "chain", "", "chain a keystore provider starts on")
	walletAttachCmd.MarkFlagsMutuallyExclusive("wallet", "url")

	walletCmd.AddCommand(walletAddCmd, walletGenerateCmd, walletListCmd, walletRemoveCmd, walletUseCmd,
		walletAttachCmd, walletDetachCmd, walletProvidersCmd,
		walletConnectCmd, walletStatusCmd, walletDisconnectCmd)
}

// providerEntry validates the attach flags.
func providerEntry(id wallet.WalletID, walletName, url, chainName string) (config.ProviderEntry, error) {
	if url != "" {
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return config.ProviderEntry{}, fmt.Errorf("remote wallet URL must be ws:// or wss://, got %q", url)
		}
		if chainName != "" {
			return config.ProviderEntry{}, errors.New("--chain only applies to keystore providers")
		}
		return config.ProviderEntry{Brand: string(id), Kind: config.ProviderKindRemote, URL: url}, nil
	}
	if chainName != "" {
		if _, err := chain.NewRegistry().GetByName(chainName); err != nil {
			return config.ProviderEntry{}, fmt.Errorf("unknown chain %q; run `infinity network list`", chainName)
		}
	}
	return config.ProviderEntry{Brand: string(id), Kind: config.ProviderKindKeystore, Wallet: walletName, Chain: chainName}, nil
}

func printSession(reg *chain.Registry, s *wallet.Session) {
	fmt.Println(ui.KeyValueBlock("Wallet Connected", [][2]string{
		{"Wallet", s.WalletID.Name()},
		{"Account", ui.Addr(s.Account)},
		{"Network", reg.DisplayNameFor(s.ChainID)},
	}))
}

// guardHint warns when the wallet is on a chain the app does not support.
func guardHint(reg *chain.Registry, chainID string) error {
	g, err := newGuard(reg)
	if err != nil {
		return err
	}
	if err := g.Check(chainID); err != nil {
		fmt.Println(ui.Warn(err.Error()))
		fmt.Println(ui.Hint("Switch with: infinity network switch"))
	}
	return nil
}

// walletTypeLabel converts an internal wallet type to a user-friendly label.
func walletTypeLabel(t string) string {
	switch t {
	case wallet.TypeSigning:
		return "read-write"
	default:
		return t
	}
}
