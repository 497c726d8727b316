package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"articles-cache-api/internal/cache"
	"articles-cache-api/internal/codec"
	"articles-cache-api/internal/config"
	"articles-cache-api/internal/handler"
	"articles-cache-api/internal/router"
	"articles-cache-api/internal/service"
	"articles-cache-api/internal/upstream"
	"articles-cache-api/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize cache store
	store, err := cache.New(ctx, cache.Options{
		Type: cfg.Cache.Type,
		TTL:  cfg.Cache.TTL,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			PoolSize: cfg.Cache.RedisPoolSize,
		},
		SQLitePath:      cfg.Cache.SQLitePath,
		CleanupInterval: cfg.Cache.CleanupInterval,
		MaxCostMB:       cfg.Cache.MaxCostMB,
	})
	if err != nil {
		log.Fatal("failed to initialize cache", zap.String("type", cfg.Cache.Type), zap.Error(err))
	}
	defer store.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		// Reads fall through to upstream until the store comes back.
		log.Warn("cache store unreachable", zap.String("type", cfg.Cache.Type), zap.Error(err))
	} else {
		log.Info("cache store initialized", zap.String("type", cfg.Cache.Type))
	}
	cancel()

	var cleanup *service.CleanupScheduler
	if purger, ok := store.(service.Purger); ok {
		cleanup = service.NewCleanupScheduler(purger, service.CleanupConfig{
			Interval: cfg.Cache.CleanupInterval,
		}, log)
		cleanup.Start()
	}

	entryCodec, err := codec.New(cfg.Cache.Codec)
	if err != nil {
		log.Fatal("failed to initialize codec", zap.Error(err))
	}

	client, err := upstream.New(upstream.Config{
		BaseURL:         cfg.Upstream.BaseURL,
		Token:           cfg.Upstream.Token,
		Timeout:         cfg.Upstream.Timeout,
		MaxRetries:      cfg.Upstream.MaxRetries,
		MaxIdleConns:    cfg.Upstream.PoolConnections,
		MaxConnsPerHost: cfg.Upstream.PoolMaxSize,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize upstream client", zap.Error(err))
	}

	// Initialize services
	articles := service.NewArticleService(client, store, entryCodec, service.ArticleConfig{
		TTL:            cfg.Cache.TTL,
		PageSize:       cfg.Articles.PageSize,
		MaxPageSize:    cfg.Articles.MaxPageSize,
		MaxConcurrency: cfg.Articles.MaxConcurrency,
		MaxPages:       cfg.Articles.MaxPages,
		KeyPrefix:      cfg.Cache.KeyPrefix,
		SingleFlight:   cfg.Articles.SingleFlight,
	}, log)

	// Initialize handlers
	r := router.New(router.Config{
		Handler:        handler.New(cfg.App.Name, cfg.App.Version, store, cfg.Cache.Type),
		ArticleHandler: handler.NewArticleHandler(articles, log),
		AdminHandler:   handler.NewAdminHandler(articles, cfg.Cache.Type, entryCodec.Name()),
		AdminKeys:      cfg.App.AdminKeys,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAge,
		Logger:         log,
	})
	if len(cfg.App.AdminKeys) == 0 {
		log.Info("ADMIN_API_KEYS not set, admin endpoints disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	if cleanup != nil {
		cleanup.Stop()
	}

	log.Info("server stopped")
}
