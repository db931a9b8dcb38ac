package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"erpstock/internal/domain/auth"
	"erpstock/internal/domain/inventory"
	v1 "erpstock/internal/infrastructure/http/v1"
	"erpstock/internal/infrastructure/http/v1/middleware"
	"erpstock/internal/infrastructure/storage/postgres"
	"erpstock/internal/infrastructure/storage/postgres/erp_repo"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting erpstock",
		"version", version,
		"business_unit", cfg.BusinessUnit,
		"schema", cfg.Layout.Schema,
	)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.DSN)
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns
	poolCfg.ApplicationName = cfg.DB.ApplicationName

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to ERP database: %w", err)
	}
	defer pool.Close()
	pool.LogPoolStats(ctx)

	txm := postgres.NewTxManager(pool, cfg.DB.QueryTimeout)
	repo := erp_repo.NewStockRepo(txm, cfg.Layout)
	service := inventory.NewService(repo, txm)

	// --- Auth ---
	var validator middleware.JWTValidator
	if cfg.Auth.JWTSecret != "" {
		validator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret, cfg.Auth.AllowedEmailDomain))
	} else {
		log.Warn("AUTH_JWT_SECRET not set: bearer tokens are accepted without verification")
		validator = auth.PresenceValidator{}
	}

	// --- HTTP Server ---
	handler := v1.NewHandler(v1.RouterConfig{
		Logger:         log,
		JWTValidator:   validator,
		Stock:          service,
		BusinessUnit:   cfg.BusinessUnit,
		DB:             pool,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Version:        version,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.DB.QueryTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
