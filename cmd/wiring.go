package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Mohsinsiddi/infinity/internal/api"
	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/Mohsinsiddi/infinity/internal/ens"
	"github.com/Mohsinsiddi/infinity/internal/network"
	"github.com/Mohsinsiddi/infinity/internal/rpc"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
)

// newWalletManager creates a Manager backed by the config-dir JSON store and
// the OS keychain.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(wallet.DefaultKeystore(cfg.Dir())),
	)
}

// loadSigningWallet loads a wallet by name (default wallet when empty) and
// verifies it can sign.
func loadSigningWallet(mgr *wallet.Manager, name string) (*wallet.Wallet, error) {
	var w *wallet.Wallet
	if name == "" {
		w = mgr.Default()
		if w == nil {
			return nil, fmt.Errorf("no default wallet; run `infinity wallet use <name>`")
		}
	} else {
		var err error
		w, err = mgr.Get(name)
		if err != nil {
			return nil, fmt.Errorf("wallet %q not found; run `infinity wallet list`", name)
		}
	}
	if !w.CanSign() {
		return nil, fmt.Errorf(
			"wallet %q is watch-only and cannot sign\n  To add a signing wallet: infinity wallet add <name> --key <private-key>",
			w.Name,
		)
	}
	return w, nil
}

// newRegistry returns the chain registry with user RPC overrides applied.
func newRegistry() *chain.Registry {
	reg := chain.NewRegistry()
	for name, urls := range cfg.CustomRPCs {
		if c, err := reg.GetByName(name); err == nil {
			reg.Add(c.WithCustomRPCs(urls))
		}
	}
	return reg
}

// rpcClient returns a JSON-RPC client for the best of c's endpoints under
// the configured rpc_strategy.
func rpcClient(ctx context.Context, c chain.Chain) (*chain.EVMClient, error) {
	if len(c.RPCs) == 0 {
		return nil, fmt.Errorf("no RPC configured for %s; add one with `infinity config set-rpc %s <url>`", c.Name, c.Name)
	}
	strategy, err := rpc.ParseStrategy(cfg.RPCStrategy)
	if err != nil {
		return nil, err
	}
	url, err := rpc.NewSelector(strategy).Best(ctx, c.RPCs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.DisplayName, err)
	}
	appLog.Debug().Str("chain", c.Name).Str("rpc", url).Msg("selected RPC endpoint")
	return chain.NewEVMClient(url), nil
}

// ensChain is where investor names are registered.
const ensChain = "ethereum"

// newResolver returns an ENS resolver over the name chain's RPC.
func newResolver(ctx context.Context) (*ens.Resolver, error) {
	c, err := newRegistry().GetByName(ensChain)
	if err != nil {
		return nil, err
	}
	client, err := rpcClient(ctx, *c)
	if err != nil {
		return nil, err
	}
	return ens.NewResolver(client), nil
}

// newAPIClient talks to the Infinity API at cfg.APIURL.
func newAPIClient() *api.Client {
	return api.NewClient(cfg.APIURL, config.APITimeout)
}

// newGuard builds the network guard from config.
func newGuard(reg *chain.Registry) (*network.Guard, error) {
	return network.NewGuard(reg, cfg.SupportedChains, cfg.PreferredChain, terminalPrompter, appLog)
}

// terminalPrompter shows provider approval requests on the terminal.
var terminalPrompter = wallet.PromptFunc(func(_ context.Context, p wallet.Prompt) (bool, error) {
	fmt.Println(ui.KeyValueBlock(p.Title, p.Details))
	return ui.Confirm("Approve?"), nil
})

// buildInjected turns the configured provider entries into live providers,
// the way installed extensions show up in a browser. An entry that cannot
// be loaded is skipped with a warning. The returned func closes remote
// connections.
func buildInjected(ctx context.Context, reg *chain.Registry) (*wallet.Injected, func()) {
	if len(cfg.Providers) == 0 {
		return nil, func() {}
	}

	perms, err := wallet.NewPermissionStore(cfg.PermissionsPath())
	if err != nil {
		appLog.Warn().Err(err).Msg("wallet permissions unreadable, starting fresh")
		perms, _ = wallet.NewPermissionStore("")
	}

	var (
		mgr     *wallet.Manager
		remotes []*wallet.RemoteProvider
	)
	inj := &wallet.Injected{}
	for _, e := range cfg.Providers {
		id, err := wallet.ParseWalletID(e.Brand)
		if err != nil {
			appLog.Warn().Err(err).Str("brand", e.Brand).Msg("skipping provider")
			continue
		}

		switch e.Kind {
		case config.ProviderKindRemote:
			rp, err := wallet.DialRemoteProvider(ctx, e.URL, id, appLog)
			if err != nil {
				appLog.Warn().Err(err).Str("brand", e.Brand).Str("url", e.URL).Msg("remote wallet unavailable")
				continue
			}
			remotes = append(remotes, rp)
			inj.Providers = append(inj.Providers, rp)

		default:
			if mgr == nil {
				mgr = newWalletManager()
			}
			w, err := loadSigningWallet(mgr, e.Wallet)
			if err != nil {
				appLog.Warn().Err(err).Str("brand", e.Brand).Msg("skipping keystore provider")
				continue
			}
			kp, err := wallet.NewKeystoreProvider(wallet.KeystoreProviderConfig{
				Brand:        id,
				Wallet:       w,
				Keystore:     mgr.Keystore(),
				Registry:     reg,
				Permissions:  perms,
				Prompter:     terminalPrompter,
				DefaultChain: e.Chain,
				CustomRPCs:   cfg.CustomRPCs,
				Logger:       appLog,
			})
			if err != nil {
				appLog.Warn().Err(err).Str("brand", e.Brand).Msg("skipping keystore provider")
				continue
			}
			inj.Providers = append(inj.Providers, kp)
		}
	}

	return inj, func() {
		for _, r := range remotes {
			_ = r.Close()
		}
	}
}

// openConnector builds a connector over the configured providers. The
// returned func releases provider connections.
func openConnector(ctx context.Context, reg *chain.Registry) (*wallet.Connector, func()) {
	inj, closeProviders := buildInjected(ctx, reg)
	c := wallet.NewConnector(wallet.ConnectorConfig{
		Injected:  inj,
		Store:     wallet.NewFileSessionStore(cfg.SessionPath()),
		UserAgent: os.Getenv("INFINITY_USER_AGENT"),
		DAppURL:   cfg.DAppURL,
		Logger:    appLog,
	})
	return c, func() {
		c.Close()
		closeProviders()
	}
}

// errNoSession is returned by commands that need a connected wallet.
var errNoSession = errors.New("no wallet connected; run `infinity wallet connect <brand>`")

// requireSession restores the persisted wallet session.
func requireSession(ctx context.Context, c *wallet.Connector) (*wallet.Session, wallet.Provider, error) {
	s, err := c.RestoreSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		return nil, nil, errNoSession
	}
	p, err := c.Provider()
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}

// errorLine formats a command error for stderr.
func errorLine(err error) string {
	var dl *wallet.DeepLinkError
	if errors.As(err, &dl) {
		return ui.Warn(dl.Error()) + "\n" + ui.Hint("Open: "+dl.URL)
	}
	return ui.Err(err.Error())
}
