package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tokenmart/config"
	"tokenmart/native/assets"
	"tokenmart/native/market"
	"tokenmart/observability"
	"tokenmart/observability/logging"
	"tokenmart/observability/otel"
	"tokenmart/rpc"
	"tokenmart/storage"
	"tokenmart/storage/marketstore"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("TOKENMART_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("tokenmartd", env, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: "tokenmartd",
			Environment: env,
			Endpoint:    endpoint,
			Insecure:    cfg.OtelInsecure,
		})
		if err != nil {
			panic(fmt.Sprintf("Failed to initialise telemetry: %v", err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	marketCfg, err := cfg.Market()
	if err != nil {
		panic(fmt.Sprintf("Invalid marketplace configuration: %v", err))
	}

	book := assets.NewBook()
	ledger := assets.NewLedger(marketCfg.PayToken)

	engine := market.NewEngine()
	engine.SetState(marketstore.New(db))
	engine.SetCollaborators(book, ledger, book)
	engine.SetConfigProvider(market.StaticConfig(marketCfg))
	engine.SetEmitter(observability.NewRecorder(logger))
	engine.SetLogger(logger)
	engine.SetPauses(cfg)

	server := rpc.NewServer(engine)
	httpSrv := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("JSON-RPC server listening", slog.String("address", cfg.RPCAddress))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("RPC server failed: %v", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("RPC server shutdown failed", slog.Any("error", err))
	}
	logger.Info("tokenmartd stopped")
}
