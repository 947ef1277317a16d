package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/Mohsinsiddi/infinity/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/infinity/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	cfgDir  string
	apiURL  string
	cfg     *config.Config
	appLog  zerolog.Logger
	verbose bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "infinity",
	Short: "Infinity Ventures: tokenized real-world asset investments",
	Long: `infinity is the terminal client and API server for Infinity Ventures.

  Browse investment templates, connect a wallet, walk the investment
  wizard, mint your on-chain receipt and follow your positions.

Run "infinity serve" to start the API the client talks to. The client
reaches it at api_url (default http://localhost:8080); override per call
with --api.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if apiURL != "" {
			cfg.APIURL = apiURL
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		appLog = logger.New(logger.Config{Level: level, Pretty: cfg.LogPretty})
		logger.SetGlobalLogger(appLog)
		return nil
	},
}

// Execute runs the root command.
// Ctrl-C cancels the command context so in-flight requests stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $INFINITY_CONFIG_DIR or ~/.infinity)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (default: config api_url)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		initCmd,
		serveCmd,
		walletCmd,
		networkCmd,
		investCmd,
		dashboardCmd,
		balanceCmd,
		signCmd,
		verifyCmd,
		contractCmd,
		configCmd,
	)
}
