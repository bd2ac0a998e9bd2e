package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Nyukimin/housedesign_agent/internal/adapter/httpapi"
)

const (
	healthTimeout = 5 * time.Second
	pruneInterval = time.Minute
)

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	app, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(app.orchestrator, app.checker, logger.Named("http"))
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{CORSOrigins: cfg.Server.CORSOrigins})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pruneDone := make(chan struct{})
	go func() {
		defer close(pruneDone)
		app.pruneIdleSessions(ctx, pruneInterval)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-pruneDone
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-pruneDone
	return nil
}

// pruneIdleSessions は無操作のセッションを定期的に破棄する
func (a *App) pruneIdleSessions(ctx context.Context, interval time.Duration) {
	if a.cfg.Session.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.pruneOnce(ctx, now)
		}
	}
}

func (a *App) pruneOnce(ctx context.Context, now time.Time) []string {
	pruned, err := a.orchestrator.PruneIdle(ctx, now.Add(-a.cfg.Session.IdleTimeout))
	if err != nil {
		a.logger.Warn("failed to prune idle sessions", zap.Error(err))
	}
	return pruned
}
