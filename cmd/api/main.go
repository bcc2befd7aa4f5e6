// path: cmd/api/main.go
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

	"github.com/redis/go-redis/v9"

	"github.com/techappsUT/social-scheduler/internal/config"
	"github.com/techappsUT/social-scheduler/internal/httpapi"
	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/middleware"
	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/platform/adapters"
	"github.com/techappsUT/social-scheduler/internal/security"
	"github.com/techappsUT/social-scheduler/internal/store"
	"github.com/techappsUT/social-scheduler/pkg/response"
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
	response.SetLogger(logger)

	db, err := store.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
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

	srv := httpapi.New(st, registry, creds, logger)
	if redisOpts, err := redis.ParseURL(cfg.Redis.URL); err != nil {
		logger.Error("parse redis url, IP rate limiting disabled")
	} else {
		srv = srv.WithRateLimiter(middleware.NewRateLimiter(redis.NewClient(redisOpts), logger))
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      srv.Router(cfg.HTTP.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("api server started")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server stopped unexpectedly: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down api server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
}
