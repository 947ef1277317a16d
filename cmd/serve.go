package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/Mohsinsiddi/infinity/internal/database"
	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/Mohsinsiddi/infinity/internal/server"
	"github.com/Mohsinsiddi/infinity/internal/storage"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveDev  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Infinity API server",
	Long: `Serve the Infinity HTTP API: investment templates, supported wallets and
networks, document hashing, storage upload and the position index.

Uploads go to the S3-compatible pinning gateway configured through
INFINITY_STORAGE_* environment variables. Without credentials the server
answers uploads in demo mode with deterministic locators.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := appLog.With().Str("component", "serve").Logger()

		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		log.Info().Str("db", db.Path()).Msg("position index ready")

		var backend storage.Backend
		if cfg.Storage.Enabled() {
			s3, err := storage.NewS3Store(ctx, cfg.Storage, cfg.GatewayURL)
			if err != nil {
				return fmt.Errorf("storage: %w", err)
			}
			backend = s3
		} else {
			log.Warn().Msg("storage credentials not set, uploads run in demo mode")
		}

		guard, err := newGuard(newRegistry())
		if err != nil {
			return err
		}

		srv := server.New(server.Config{
			Addr:      addr,
			Log:       appLog,
			Positions: database.NewPositionRepository(db, appLog),
			Storage:   storage.NewService(backend, appLog),
			Networks:  guard,
			Templates: domain.DefaultTemplates(),
			DevMode:   serveDev,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		log.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config listen_addr)")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "development mode: no response compression")
}
