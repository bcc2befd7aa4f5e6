// path: cmd/worker/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/techappsUT/social-scheduler/internal/config"
	"github.com/techappsUT/social-scheduler/internal/jobqueue"
	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// jobProcessor consumes one job type off the queue until ctx is canceled.
type jobProcessor interface {
	Name() string
	Run(ctx context.Context)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("parse redis url: %v", err)
	}
	queue := jobqueue.New(redis.NewClient(redisOpts), logger)

	db, err := store.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	st := store.NewGormStore(db)

	processors := []jobProcessor{
		newCleanupProcessor(st, queue, logger),
		newAnalyticsSinkProcessor(queue, logger),
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, p := range processors {
		wg.Add(1)
		go func(p jobProcessor) {
			defer wg.Done()
			logger.Info("job processor started", zap.String("processor", p.Name()))
			p.Run(ctx)
		}(p)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("worker shutdown timed out, exiting anyway")
	}
}
