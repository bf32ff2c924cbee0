package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"safedrive/internal/agent"
	"safedrive/internal/db"
	"safedrive/internal/server"
	"safedrive/internal/store"
	"safedrive/internal/tools"
)

const sweepInterval = 10 * time.Minute

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and chat endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func serve(migrate bool) error {
	ctx, stop := signalContext()
	defer stop()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if migrate {
		if _, err := database.RunMigrations(ctx, db.Migrations()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	st := store.NewDatabaseStore(database)

	spec, err := agent.LoadSpec(cfg.PromptsFile)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	assistant := agent.New(spec, agent.NewClient(cfg.AIAPIKey, cfg.AIBaseURL), agent.Options{
		Model:      cfg.AIModel,
		Timeout:    cfg.AITimeout,
		MaxRetries: cfg.AIMaxRetries,
	})
	assistant.Register(tools.Definition(), tools.NewDatabaseTool(st))

	s := server.NewServer(cfg, st, assistant)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepSessions(ctx, s.Sessions())

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": httpServer.Addr, "model": cfg.AIModel}).Info("server.listen")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func sweepSessions(ctx context.Context, sessions *store.SessionStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				log.WithFields(log.Fields{"expired": n, "active": sessions.Len()}).Debug("session.sweep")
			}
		}
	}
}
