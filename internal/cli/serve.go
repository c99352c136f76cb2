package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/farid/collabco/internal/config"
	"github.com/farid/collabco/internal/logger"
	"github.com/farid/collabco/pkg/api"
	"github.com/farid/collabco/pkg/auth"
	"github.com/farid/collabco/pkg/relay"
	"github.com/farid/collabco/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the collabco server",
	Long: `Start the collabco server: the HTTP API for accounts and projects
and the websocket endpoint for live collaborative sessions.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := config.NewValidator().ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()
	zl := log.GetZerolog()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	zl.Info().Str("path", cfg.Database.Path).Msg("Store opened")

	tokens := auth.NewTokenManager(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	rl := relay.New(relay.Config{
		Store:         st,
		Logger:        zl.With().Str("component", "relay").Logger(),
		NotifyOnLeave: cfg.Session.NotifyOnLeave,
	})

	server, err := api.NewServer(api.Config{
		Host:   cfg.Server.Host,
		Port:   cfg.Server.Port,
		Store:  st,
		Tokens: tokens,
		Relay:  rl,
		Logger: zl.With().Str("component", "api").Logger(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zl.Info().Str("signal", sig.String()).Msg("Shutting down")

	return server.Stop()
}
