package main

import (
	"fmt"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"safedrive/internal/db"
	"safedrive/internal/seed"
	"safedrive/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := database.RunMigrations(ctx, db.Migrations())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied.\n", n)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample products, users, cars and quotes into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if _, err := database.RunMigrations(ctx, db.Migrations()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			seeded, err := seed.Run(ctx, store.NewDatabaseStore(database))
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "Database already seeded. Exiting.")
				return nil
			}
			log.Info("seed.done")
			fmt.Fprintln(cmd.OutOrStdout(), "Database initialized successfully with sample data.")
			return nil
		},
	}
}
