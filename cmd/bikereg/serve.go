package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/config"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/database"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/handler"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/logger"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/router"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the job worker and the scheduler",
		Long: `Start the bicycle registry API.

Pending migrations are applied first unless the environment is "local".

Examples:
  bikereg serve
  bikereg serve --skip-migrations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), skipMigrations)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")

	return cmd
}

func runServe(parent context.Context, skipMigrations bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Primary.Env != "local" && !skipMigrations {
		if err := database.Migrate(ctx, &log, cfg); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	repos := repository.NewRepositories(srv)
	services, err := service.NewServices(srv, repos)
	if err != nil {
		return fmt.Errorf("failed to create services: %w", err)
	}

	if err := services.Storage.EnsureBucket(ctx, cfg.Storage.ImagesBucket, true); err != nil {
		return fmt.Errorf("failed to prepare images bucket: %w", err)
	}
	if err := services.Storage.EnsureBucket(ctx, cfg.Storage.InvoicesBucket, false); err != nil {
		return fmt.Errorf("failed to prepare invoices bucket: %w", err)
	}

	srv.Job.InitHandlers(services.Email, services.Subscription)
	if err := srv.Job.Start(); err != nil {
		return fmt.Errorf("failed to start job worker: %w", err)
	}

	r := router.NewRouter(srv, handler.NewHandlers(srv, services), repos.Profile)
	srv.SetupHTTPServer(r)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}

	log.Info().Msg("server exited properly")
	return nil
}
