// path: cmd/scheduler/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/techappsUT/social-scheduler/internal/config"
	"github.com/techappsUT/social-scheduler/internal/jobqueue"
	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/media"
	"github.com/techappsUT/social-scheduler/internal/metrics"
	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/platform/adapters"
	"github.com/techappsUT/social-scheduler/internal/publisher"
	"github.com/techappsUT/social-scheduler/internal/scheduler"
	"github.com/techappsUT/social-scheduler/internal/security"
	"github.com/techappsUT/social-scheduler/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}

	db, err := store.Connect(cfg.Database)
	if err != nil {
		logger.Error("connect database failed")
		log.Fatal(err)
	}
	if err := store.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	st := store.NewGormStore(db)

	cipher, err := security.NewCredentialCipher(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatalf("build credential cipher: %v", err)
	}
	creds := security.NewCredentialResolver(st, cipher)

	registry := platform.NewRegistry()
	registry.Register(adapters.NewTwitterAdapter())
	registry.Register(adapters.NewTelegramAdapter())
	registry.Register(adapters.NewInstagramAdapter())
	registry.Register(adapters.NewFacebookAdapter(cfg.Facebook.AppID, cfg.Facebook.AppSecret))
	registry.Register(adapters.NewMastodonAdapter())
	registry.Register(adapters.NewBlueskyAdapter())
	registry.Register(adapters.NewDiscordAdapter())
	registry.Register(adapters.NewThreadsAdapter())

	mediaLib := media.NewLibrary(cfg.Media.StoragePath)

	pub := publisher.New(st, registry, creds, mediaLib, logger, cfg.Scheduler.MaxRetries)

	loop := scheduler.New(st, pub, logger, cfg.Scheduler.PollInterval, cfg.Scheduler.StuckAfter, cfg.Scheduler.BatchSize)

	if redisOpts, err := redis.ParseURL(cfg.Redis.URL); err != nil {
		logger.Error("parse redis url, background jobs disabled")
	} else {
		jobs := jobqueue.New(redis.NewClient(redisOpts), logger)
		pub = pub.WithJobQueue(jobs)
		loop = loop.WithMediaCleanup(jobs, 24*time.Hour)
	}

	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	metricsSrv := &http.Server{Addr: ":9090", Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped unexpectedly")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		loop.Run(ctx)
	}()

	logger.Info("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	loop.Stop()
	_ = metricsSrv.Shutdown(context.Background())
}
