package router

import (
	"net/http"

	"multisearch/internal/config"
	"multisearch/internal/handler"
	"multisearch/internal/logger"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
)

// RequestIDHeader carries the id logged for each request.
const RequestIDHeader = "X-Request-ID"

// InitRoutes registers the API on the default mux.
func InitRoutes(cfg *config.Config) error {
	return Register(http.DefaultServeMux, cfg)
}

// Register adds the API routes to mux.
func Register(mux *http.ServeMux, cfg *config.Config) error {
	if mux == nil {
		mux = http.DefaultServeMux
	}
	if cfg == nil {
		cfg = &config.Config{CORS: config.CORSConfig{AllowOrigin: "*"}}
	}
	mux.HandleFunc("/api/search", chain(cfg, handler.SearchHandler))
	mux.HandleFunc("/api/count", chain(cfg, handler.CountHandler))
	return nil
}

// chain wraps h as CORS -> gzip -> rate limit -> logging -> h.
func chain(cfg *config.Config, h http.HandlerFunc) http.HandlerFunc {
	h = withRateLimit(cfg.HTTP.RateLimitPerMin, cfg.HTTP.RateLimitBurst, cfg.HTTP.TrustProxy, withLogging(h))
	if cfg.HTTP.Gzip {
		h = gzhttp.GzipHandler(h)
	}
	return withCORS(cfg.CORS, h)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		fields := map[string]any{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"model":      r.URL.Query().Get(handler.ModelKey),
			"status":     sw.status,
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}
