// Package cli provides the command-line interface for CURA.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cura/internal/adapter/llm"
	"cura/internal/adapter/memory"
	"cura/internal/adapter/postgres"
	"cura/internal/adapter/redis"
	"cura/internal/adapter/sqlite"
	"cura/internal/app"
	"cura/internal/config"
	"cura/internal/domain"
	"cura/internal/store"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	backend    domain.Backend
	curaApp    *app.App
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cura",
	Short: "CURA healthcare assistant",
	Long: `CURA is a healthcare assistant chat. Accounts, chat history and settings
are kept in local storage; replies come from the configured AI provider.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		ctx := cmd.Context()
		var err error
		backend, err = openBackend(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
		}

		curaApp = buildApp(ctx, cfg, backend, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if c, ok := backend.(io.Closer); ok {
			if err := c.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// openBackend connects the storage driver selected by cfg.
func openBackend(ctx context.Context, cfg config.Config) (domain.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverRedis:
		c, err := redis.Open(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
}

// buildApp wires the application on top of backend. A provider that cannot
// be created leaves the app answering with the fallback reply.
func buildApp(ctx context.Context, cfg config.Config, backend domain.Backend, logger *slog.Logger) *app.App {
	st := store.New(backend, logger)
	accounts := app.NewAccountDirectory(ctx, st, logger)
	sessions := app.NewSessionRepository(ctx, st, logger)

	var assistant domain.Assistant
	if a, err := llm.New(cfg, logger); err != nil {
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			logger.Warn("assistant unavailable, replies will fall back", "provider", cfg.LLMProvider, "error", err)
		}
	} else {
		assistant = a
	}

	chat := app.NewConversationController(sessions, assistant, cfg.LLMTimeout, logger)
	return app.New(ctx, st, accounts, sessions, chat, logger)
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}
