// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authmemory "github.com/gatehouse/gatehouse/internal/auth/memory"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// shutdownTimeout bounds graceful HTTP shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	flags := config.Flags()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication HTTP server",
		Long: `Start the HTTP server exposing the register, login and logout flows,
plus the authenticated user listing. Requires PostgreSQL unless --server.dev
runs everything on in-memory stores.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, flags)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().AddFlagSet(flags)
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("gatehouse", version, cfg.Log.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wire repositories: in-memory for dev mode, PostgreSQL otherwise.
	var (
		users    auth.UserRepository
		sessions auth.SessionRepository
	)
	if cfg.Server.Dev {
		logger.Warn("running in dev mode, all state is in-memory")
		users = authmemory.NewUserStore()
		sessions = authmemory.NewSessionStore()
	} else {
		pool, err := store.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = authpg.NewUserRepository(pool)
		sessions = authpg.NewSessionRepository(pool)
	}

	service, err := auth.NewService(users, sessions, auth.NewArgon2idHasher(),
		auth.WithSessionExpiry(cfg.Session.TTL),
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	// Optional observability listener.
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obs := observability.NewServer(cfg.Metrics.Addr, func() bool { return true })
		if _, err := obs.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = obs.Stop(stopCtx) //nolint:errcheck // shutdown path, nothing to do about it
		}()
		metrics = obs.Metrics()
	}

	router := web.NewRouter(web.RouterDeps{
		Service: service,
		Config: web.HandlerConfig{
			CookieName:   cfg.Session.CookieName,
			CookieSecure: cfg.Session.CookieSecure,
			SessionTTL:   cfg.Session.TTL,
		},
		Metrics: metrics,
		Logger:  logger,
	})

	// Expired-session sweeper. Expiry is enforced at validation time
	// either way; this just keeps the table from growing without bound.
	if cfg.Session.SweepInterval > 0 {
		go runSweeper(ctx, service, metrics, cfg.Session.SweepInterval, logger)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", slog.String("addr", cfg.Server.Addr))
		if serveErr := httpSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err //nolint:wrapcheck // top-level shutdown error, logged by cobra
	}
	return nil
}

// runSweeper purges expired sessions until ctx is cancelled. Swept sessions
// never pass through the logout handler, so the active-sessions gauge is
// settled here with the purge count. metrics may be nil.
func runSweeper(ctx context.Context, service *auth.Service, metrics *observability.Metrics, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := service.PurgeExpired(ctx)
			if err != nil {
				errutil.LogWarn(logger, "session sweep failed", err)
				continue
			}
			if metrics != nil && n > 0 {
				metrics.SessionsActive.Sub(float64(n))
			}
		}
	}
}
