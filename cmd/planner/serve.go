package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handler "content-planner-backend/api"
	"content-planner-backend/pkg/auth"
	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/database"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

var servePort string

// serveCmd runs the API outside the serverless platform
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API as a long-lived server.

Configuration is read from .env.local (or .env.production), config.yaml and
the environment. Idle user workspaces are swept in the background and the
server drains in-flight requests on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.GetCached()
	if servePort != "" {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := handler.Logger(cfg)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	db, err := database.GetDatabase(ctx, handler.StoreConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.CloseDatabase(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}()

	workspaces := handler.NewWorkspaceCache(cfg, db)
	defer workspaces.Close()

	router := handler.NewRouter(handler.Deps{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Provider:   auth.NewProvider(cfg, db),
		Verifier:   auth.VerifierFor(cfg),
		Workspaces: workspaces,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.StoreKind()).
			Str("environment", cfg.Environment).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		workspaces.Run(gctx, sweepInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
