package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/config"
	"github.com/posdesk/posdesk/pkg/eventbus"
	"github.com/posdesk/posdesk/pkg/payout"
	"github.com/posdesk/posdesk/pkg/provider"
	"github.com/posdesk/posdesk/pkg/store/postgres"
	redisclient "github.com/posdesk/posdesk/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	payoutRepo := postgres.NewPayoutRepository(db.DB())
	docRepo := postgres.NewDocumentRepository(db.DB())
	bus := eventbus.NewBus(redis.Client())

	origins := payout.NewOriginSync(docRepo, logger)
	engine := payout.NewEngine(payoutRepo, origins, logger)

	// Rail clients are provided by the deployment; nil clients would only
	// matter once a LINE_PAY or BANK_TRANSFER payout is dispatched.
	providers := provider.DefaultRegistry(newLINEPayClient(), newBankTransferClient(), logger)

	scheduler := payout.NewScheduler(payoutRepo, engine, providers, logger, cfg.Payout.ProviderTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := bus.Subscribe(ctx, eventbus.ChannelBatch)
	go func() {
		for event := range events {
			var batchEvent eventbus.BatchEvent
			if err := json.Unmarshal(event.Data, &batchEvent); err != nil {
				logger.Warn("failed to decode batch event", zap.Error(err))
				continue
			}
			batchID, err := uuid.Parse(batchEvent.BatchID)
			if err != nil {
				logger.Warn("invalid batch id in event", zap.String("batch_id", batchEvent.BatchID))
				continue
			}
			if err := scheduler.ScheduleBatch(ctx, batchID); err != nil {
				logger.Error("failed to schedule batch", zap.String("batch_id", batchEvent.BatchID), zap.Error(err))
			}
		}
	}()

	go scheduler.RunReconciler(ctx, cfg.Payout.ReconcileInterval, cfg.Payout.PendingAge)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: mux,
	}

	go func() {
		logger.Info("starting metrics server", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("payout worker shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
