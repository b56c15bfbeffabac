// Command dexnode runs the order-matching and settlement core as a
// standalone HTTP/WebSocket service: no consensus or networking layer,
// just the dispatcher wired to durable storage.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ledgerdex/matchcore/internal/api"
	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/feeconfig"
	"github.com/ledgerdex/matchcore/internal/kv"
	"github.com/ledgerdex/matchcore/internal/ledgerstate"
	"github.com/ledgerdex/matchcore/internal/obslog"
	"github.com/ledgerdex/matchcore/internal/orderbook"
	"github.com/ledgerdex/matchcore/internal/sqlbook"
)

func main() {
	cfg := feeconfig.LoadFromEnv("")

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/dexnode.log"
	}
	logger, err := obslog.NewWithFile(logFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("logger_initialized", zap.String("log_file", logFile))

	kvPath := os.Getenv("KV_PATH")
	if kvPath == "" {
		kvPath = "data/accounts.pebble"
	}
	accKV, err := kv.OpenPebbleKV(kvPath)
	if err != nil {
		logger.Fatal("pebble open failed", zap.Error(err))
	}
	defer accKV.Close()
	accStore := ledgerstate.NewAccountStore(accKV)

	bookPath := os.Getenv("BOOK_PATH")
	if bookPath == "" {
		bookPath = "data/orderbook.sqlite"
	}
	sqlStore, err := sqlbook.Open(bookPath)
	if err != nil {
		logger.Fatal("sqlite open failed", zap.Error(err))
	}
	defer sqlStore.Close()

	var book orderbook.Store = orderbook.NewCachedStore(sqlStore)
	assets := asset.NewRegistry()

	server := api.NewServer(logger, cfg, accStore, book, assets)

	apiAddr := os.Getenv("API_ADDR")
	if apiAddr == "" {
		apiAddr = ":8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_server_starting", zap.String("addr", apiAddr))
		errCh <- server.Start(apiAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal_received")
	case err := <-errCh:
		if err != nil {
			logger.Fatal("api_server_failed", zap.Error(err))
		}
	}
}
