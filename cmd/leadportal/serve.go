package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/leadportal/internal/auth"
	"github.com/dukerupert/leadportal/internal/feed"
	"github.com/dukerupert/leadportal/internal/server"
	"github.com/dukerupert/leadportal/internal/session"
	"github.com/dukerupert/leadportal/internal/store"
)

const cleanupInterval = 10 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	cfg, logger := e.cfg, e.logger
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cred, err := auth.NewAdminCredential(cfg.AdminPasswordHash, cfg.AdminPassword, logger.With("component", "auth"))
	if err != nil {
		return err
	}

	var (
		sessions session.Store
		sweeper  server.Sweeper
	)
	switch cfg.SessionBackend {
	case "redis":
		client, err := session.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		sessions = session.NewRedisStore(client)
		logger.Info("sessions stored in redis", "addr", cfg.Redis.Addr)
	default:
		sqlSessions := store.NewSessionStore(e.db)
		sessions, sweeper = sqlSessions, sqlSessions
	}

	news := feed.NewService(feed.Config{
		URL:     cfg.Feed.URL,
		TTL:     cfg.Feed.TTL,
		Timeout: cfg.Feed.Timeout,
		Backoff: cfg.Feed.Backoff,
	}, feed.WithLogger(logger.With("component", "feed")))
	go news.Refresh(ctx)

	srv, err := server.New(server.Config{
		SessionSecret:  cfg.SessionSecret,
		SessionTTL:     cfg.SessionTTL,
		CookieSecure:   cfg.CookieSecure,
		CSRFSecret:     cfg.CSRFSecret,
		RequestTimeout: cfg.RequestTimeout,
		SchemaTTL:      cfg.LeadSchemaTTL,
		Metrics:        cfg.MetricsEnabled,
	}, server.Deps{
		DB:       e.db,
		Sessions: sessions,
		Partners: e.partnerService(),
		News:     news,
		Admin:    cred,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go srv.RunCleanup(cleanupCtx, cleanupInterval, sweeper)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:         cfg.MetricsAddr,
			Handler:      server.MetricsHandler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
