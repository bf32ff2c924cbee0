package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/spf13/cobra"

	"safedrive/internal/config"
	"safedrive/internal/db"
)

// cfg is loaded once before any subcommand runs.
var cfg config.Config

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "safedrive",
		Short:         "SafeDrive car insurance assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			log.SetHandler(text.New(os.Stderr))
			if cfg.Debug {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.InfoLevel)
			}
			return nil
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newMCPCmd(), newChatCmd())
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func openDatabase(ctx context.Context) (*db.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	database, err := db.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.WithFields(log.Fields{"host": cfg.MySQLHost, "database": cfg.MySQLDatabase}).Info("database.connected")
	return database, nil
}
