package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "TradeHook/internal/domain/repository"
	"TradeHook/internal/service/trend"
	"TradeHook/internal/service/upbit"
	"TradeHook/pkg/config"
	xhttp "TradeHook/pkg/http"
	applogger "TradeHook/pkg/logger"
)

// App encapsulates the application lifecycle: trend refresh loop, optional
// price stream, HTTP server, graceful shutdown.
type App struct {
	cfg     *config.Config
	logger  *applogger.Logger
	gate    *trend.Gate
	stream  *upbit.Stream
	handler xhttp.Handler
	journal domrepo.Journal

	httpServer *xhttp.Server
}

// New creates an App with all dependencies. stream may be nil.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	gate *trend.Gate,
	stream *upbit.Stream,
	handler xhttp.Handler,
	journal domrepo.Journal,
) *App {
	return &App{
		cfg:     cfg,
		logger:  l,
		gate:    gate,
		stream:  stream,
		handler: handler,
		journal: journal,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the trend gate before serving. A failure is not fatal: the gate
	// stays unknown and blocks gated buys until the refresh loop succeeds.
	if err := a.gate.Recompute(ctx); err != nil {
		a.logger.Warn("initial trend recompute failed, gate starts unknown", applogger.Error(err))
	}
	go a.gate.Run(ctx, a.cfg.Trend.RefreshInterval)
	a.logger.Info("trend refresh loop started",
		applogger.String("market", a.cfg.Trend.ReferenceMarket),
		applogger.Duration("interval", a.cfg.Trend.RefreshInterval),
	)

	if a.stream != nil {
		go a.stream.Run(ctx)
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("webhook server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown stops the HTTP server and closes the journal.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("journal close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
