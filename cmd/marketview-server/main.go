package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/7tzy/marketview/internal/config"
	"github.com/7tzy/marketview/internal/httpapi"
	"github.com/7tzy/marketview/internal/marketdata"
	"github.com/7tzy/marketview/internal/userstore"
	"github.com/7tzy/marketview/internal/util"
)

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfgPath := "config/marketview.yaml"
	if p := os.Getenv("MARKETVIEW_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	users, err := userstore.New(cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("opening user store: %v", err)
	}

	// Offline mode is the deployment default: market endpoints answer the
	// offline sentinel and nothing upstream is contacted.
	var (
		provider marketdata.Provider = marketdata.OfflineProvider{}
		cache    *marketdata.SnapshotCache
		archive  *marketdata.HistoryArchive
	)
	if !cfg.Market.Offline {
		if cfg.Market.APIKey == "" || cfg.Market.APISecret == "" {
			log.Fatal("live mode requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
		provider = marketdata.NewAlpacaProvider(
			cfg.Market.APIKey, cfg.Market.APISecret, cfg.Market.BaseURL, cfg.Market.RateLimitPerMin)

		cache, err = marketdata.NewSnapshotCache(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening snapshot cache: %v", err)
		}
		defer cache.Close()

		archive = marketdata.NewHistoryArchive(cfg.Storage.DataDir)
	}

	srv := httpapi.NewDashboardServer(
		users, provider, cache, archive, cfg.Admin.Credentials, cfg.Storage.DataDir, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go srv.Hub().Run(ctx)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("marketview server listening",
			"addr", httpServer.Addr, "offline", cfg.Market.Offline)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down marketview server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
