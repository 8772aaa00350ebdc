package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TradeQuorum/internal/domain/repository"
	"TradeQuorum/internal/usecase"
	pkgch "TradeQuorum/pkg/clickhouse"
	"TradeQuorum/pkg/config"
	xhttp "TradeQuorum/pkg/http"
	pkgkafka "TradeQuorum/pkg/kafka"
	applogger "TradeQuorum/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	collector  *usecase.TickCollector
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	controller *usecase.RoundController
	exec       repository.Execution
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	controller *usecase.RoundController,
	exec repository.Execution,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		collector:  collector,
		consumer:   consumer,
		kh:         kh,
		chClient:   chClient,
		controller: controller,
		exec:       exec,
		handler:    handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the tick collector; a dead feed only degrades consensus
	// coverage, it does not block startup.
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.log.Error("tick collector error", applogger.Error(err))
			}
		}()
		a.log.Info("tick collector started", applogger.Strings("universe", a.cfg.Trading.Universe))
	}

	// Start claims intake consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("claims intake started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// Start round scheduler when an interval is configured. Rounds can
	// always be triggered over HTTP regardless.
	if a.controller != nil && a.cfg.Trading.RoundInterval > 0 {
		go a.scheduleRounds(ctx)
		a.log.Info("round scheduler started", applogger.Duration("interval", a.cfg.Trading.RoundInterval))
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// scheduleRounds runs one round per interval until ctx is cancelled.
func (a *App) scheduleRounds(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Trading.RoundInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := a.controller.RunRound(ctx)
			if err != nil {
				a.log.Error("scheduled round failed", applogger.String("round", report.ID), applogger.Error(err))
				continue
			}
			a.log.Info("scheduled round settled",
				applogger.String("round", report.ID),
				applogger.Int("claims", len(report.Claims)),
				applogger.Int("consensus", len(report.Consensus)),
			)
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.exec != nil {
		if err := a.exec.Close(); err != nil {
			a.log.Warn("execution close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
