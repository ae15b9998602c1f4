package router

import (
	"net/http"
	"strings"

	"multisearch/internal/config"
	"multisearch/internal/logger"
)

const (
	corsMethods = "GET, OPTIONS"
	corsMaxAge  = "86400"
)

// corsPolicy is the parsed CORS_* configuration. The search API is read
// only, so GET is the one method a foreign page may use.
type corsPolicy struct {
	origins     map[string]bool
	anyOrigin   bool
	credentials bool
}

// newCORSPolicy parses AllowOrigin, a comma separated list; "*" or empty
// allows any origin.
func newCORSPolicy(c config.CORSConfig) corsPolicy {
	p := corsPolicy{origins: map[string]bool{}, credentials: c.AllowCredentials}
	for _, o := range strings.Split(c.AllowOrigin, ",") {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.origins[o] = true
		}
	}
	if len(p.origins) == 0 {
		p.anyOrigin = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// from origin ("" when blocked) and whether the answer depends on Origin.
// Credentials never go out with a literal "*".
func (p corsPolicy) allowOrigin(origin string) (value string, varyOrigin bool) {
	if p.anyOrigin {
		if p.credentials && origin != "" {
			return origin, true
		}
		return "*", false
	}
	if origin != "" && p.origins[origin] {
		return origin, true
	}
	return "", true
}

// withCORS adds CORS headers and answers OPTIONS itself. A preflight from a
// blocked origin, or for any method but GET, is refused with 403.
func withCORS(c config.CORSConfig, h http.HandlerFunc) http.HandlerFunc {
	p := newCORSPolicy(c)
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		value, varyOrigin := p.allowOrigin(origin)
		if varyOrigin {
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Allow", corsMethods)
			requested := r.Header.Get("Access-Control-Request-Method")
			if origin != "" && (value == "" || (requested != "" && requested != http.MethodGet)) {
				logger.Warn("cors_preflight_rejected", map[string]any{
					"origin": origin,
					"method": requested,
					"path":   r.URL.Path,
				})
				w.WriteHeader(http.StatusForbidden)
				return
			}
			setAllowOrigin(w, value, p.credentials)
			w.Header().Set("Access-Control-Allow-Methods", corsMethods)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			w.Header().Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		setAllowOrigin(w, value, p.credentials)
		if value != "" {
			// CSV downloads name themselves through Content-Disposition
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, "+RequestIDHeader)
		}
		h(w, r)
	}
}

func setAllowOrigin(w http.ResponseWriter, value string, credentials bool) {
	if value == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", value)
	if credentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}
