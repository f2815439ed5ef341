// cmd/stream-engine — chat state engine entrypoint: stream consumer,
// lifecycle sync, and HTTP API.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/multi-agent/chatstream/internal/api"
	"github.com/multi-agent/chatstream/internal/config"
	"github.com/multi-agent/chatstream/internal/database"
	"github.com/multi-agent/chatstream/internal/dispatch"
	"github.com/multi-agent/chatstream/internal/engine"
	"github.com/multi-agent/chatstream/internal/lifecycle"
	"github.com/multi-agent/chatstream/internal/registry"
	"github.com/multi-agent/chatstream/internal/store"
	"github.com/multi-agent/chatstream/internal/stream"
	"github.com/multi-agent/chatstream/pkg/logger"
	"github.com/multi-agent/chatstream/pkg/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	logger.Init(cfg.AppEnv)

	eng := engine.New(dispatch.New())

	// Persistence is optional: without a connection string the engine runs
	// purely in memory.
	var history api.HistorySource
	var recorder stream.Recorder
	if cfg.PostgresConnStr != "" {
		pool, err := database.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("database init failed", logger.FieldError, err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, "./migrations"); err != nil {
			logger.Fatal("migration failed", logger.FieldError, err)
		}
		msgStore := store.NewSessionMessageStore(pool)
		history = msgStore
		recorder = store.NewStreamRecorder(msgStore, eng)
	} else {
		logger.Info("no postgres configured, running without persistence")
	}

	consumer := stream.NewConsumer(cfg.BackendWSURL, eng, recorder, stream.Options{
		MaxRetries:      cfg.StreamMaxRetries,
		QueueSize:       cfg.StreamQueueSize,
		ReadIdleTimeout: time.Duration(cfg.StreamReadIdleSec) * time.Second,
		PingInterval:    time.Duration(cfg.StreamPingSec) * time.Second,
	})
	consumer.Start(ctx)

	regClient := registry.NewClient(cfg.RegistryBaseURL, time.Duration(cfg.RegistryTimeoutSec)*time.Second)
	syncer := lifecycle.NewSyncer(regClient, eng, lifecycle.Options{
		PollInterval:     time.Duration(cfg.RegistryPollSec) * time.Second,
		SnapshotInterval: time.Duration(cfg.SnapshotUploadSec) * time.Second,
		IdleCleanupAfter: time.Duration(cfg.SessionIdleCleanupMin) * time.Minute,
		CleanupEnabled:   cfg.SessionCleanupEnabled,
	})
	syncer.Start(ctx)

	srv := api.NewServer(eng, history, syncer)
	logger.Info("stream engine starting", logger.FieldAddr, cfg.HTTPListenAddr)
	util.SafeGo(func() {
		if err := srv.Run(cfg.HTTPListenAddr); err != nil {
			logger.Fatal("http server failed", logger.FieldError, err)
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")
}
