package config

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SEARCH_DIR", "/srv/searches")
	t.Setenv("REDIS_ADDR", " redis:6379 ")
	t.Setenv("CATALOG_CACHE_TTL_SEC", "60")
	t.Setenv("CATALOG_CACHE_ENABLED", "false")
	t.Setenv("SEARCH_WATCH", "true")
	t.Setenv("RATE_LIMIT_PER_MIN", "120")
	t.Setenv("HTTP_GZIP", "0")
	t.Setenv("RATE_LIMIT_TRUST_PROXY", "true")

	cfg := LoadConfig()
	if cfg.Port != "9090" || cfg.SearchDir != "/srv/searches" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("redis addr not trimmed: %q", cfg.RedisAddr)
	}
	if cfg.Catalog.CacheTTL != time.Minute || cfg.Catalog.CacheEnabled {
		t.Fatalf("unexpected catalog config: %+v", cfg.Catalog)
	}
	want := HTTPConfig{Gzip: false, RateLimitPerMin: 120, RateLimitBurst: 20, TrustProxy: true}
	if cfg.HTTP != want || !cfg.SearchWatch {
		t.Fatalf("unexpected http config: %+v watch=%v", cfg.HTTP, cfg.SearchWatch)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CATALOG_CACHE_TTL_SEC", "soon")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "maybe")
	t.Setenv("RATE_LIMIT_PER_MIN", "-5")

	cfg := LoadConfig()
	if cfg.Catalog.CacheTTL != 2*time.Hour {
		t.Fatalf("expected default ttl, got %v", cfg.Catalog.CacheTTL)
	}
	if cfg.CORS.AllowCredentials {
		t.Fatalf("expected default credentials flag")
	}
	if cfg.HTTP.RateLimitPerMin != 0 || !cfg.HTTP.Gzip || cfg.HTTP.TrustProxy {
		t.Fatalf("expected http defaults, got %+v", cfg.HTTP)
	}
}
