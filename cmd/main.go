package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"multisearch/internal/catalog"
	"multisearch/internal/config"
	"multisearch/internal/db"
	"multisearch/internal/handler"
	"multisearch/internal/logger"
	"multisearch/internal/model"
	"multisearch/internal/resolver"
	"multisearch/internal/router"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging (includes generated SQL)")
	flushFlag := flag.Bool("flush-catalogs", false, "drop cached field catalogs from Redis on start")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)

	ctx := context.Background()

	// PostgreSQL
	if err := db.InitPostgres(cfg.PostgresDSN); err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("postgres_connected", nil)

	// Redis is optional: without it catalogs are introspected per request
	var supplier catalog.Supplier = catalog.Postgres{DB: db.Pool}
	if err := db.InitRedis(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis_unavailable", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
	} else if db.RDB != nil && cfg.Catalog.CacheEnabled {
		if *flushFlag {
			if err := catalog.FlushCatalogs(ctx, db.RDB); err != nil {
				logger.Warn("catalog_flush_failed", map[string]any{"error": err.Error()})
			}
		}
		supplier = catalog.Cache{Store: db.RDB, Next: supplier, TTL: cfg.Catalog.CacheTTL}
		logger.Info("catalog_cache_enabled", map[string]any{"addr": cfg.RedisAddr, "ttl_sec": cfg.Catalog.CacheTTL.Seconds()})
	}

	if err := model.InitRegistry(cfg.SearchDir); err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error(), "dir": cfg.SearchDir})
		os.Exit(1)
	}
	logger.Info("searches_initialized", map[string]any{"names": model.Names()})
	if cfg.SearchWatch {
		go func() {
			if err := model.Watch(ctx, cfg.SearchDir); err != nil {
				logger.Warn("search_watch_failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	handler.Backend = resolver.Deps{
		Catalog: supplier,
		Exec:    db.Executor{DB: db.Pool},
	}

	if err := router.InitRoutes(cfg); err != nil {
		logger.Error("router_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	logger.Info("server_start", map[string]any{"port": cfg.Port})
	log.Printf("Starting search server on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
