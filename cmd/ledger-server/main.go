package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/jbrasil/stockledger/internal/config"
	"github.com/jbrasil/stockledger/internal/httpapi"
	"github.com/jbrasil/stockledger/internal/ledger"
	"github.com/jbrasil/stockledger/internal/store"
	"github.com/jbrasil/stockledger/internal/telemetry"
)

const instrumentationName = "github.com/jbrasil/stockledger"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	providers, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down telemetry", zap.Error(err))
		}
	}()

	// Initialize store
	st, err := store.Open(ctx, cfg.StoreOptions(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("error closing store", zap.Error(err))
		}
	}()

	l := ledger.New(st,
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithMeter(otel.Meter(instrumentationName)),
		ledger.WithKeyPrefix(cfg.KeyPrefix),
		ledger.WithDefaultPassword(cfg.DefaultPassword),
	)
	if err := l.Load(ctx); err != nil {
		// chaves que falharam ficam com o default e bloqueadas para escrita
		logger.Error("ledger loaded with errors", zap.Error(err))
	}

	handler := httpapi.NewLedgerHandler(l, otel.Tracer(instrumentationName), logger.Named("http"))
	router := httpapi.NewRouter(handler, cfg.Telemetry.ServiceName)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
