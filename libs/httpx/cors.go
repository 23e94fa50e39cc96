package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy describes which browser origins may call the API.
// Origins may be exact ("https://app.salon.test"), "*" or a subdomain
// pattern ("https://*.salon.test").
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	defaultCORSHeaders = []string{"Authorization", "Content-Type", RequestIDHeader}
)

type corsHeaders struct {
	methods string
	headers string
	maxAge  string
}

// WithCORS answers preflights and decorates responses for allowed origins.
// With no allowed origins it passes requests through untouched.
func WithCORS(cfg CORSPolicy) Middleware {
	origins := trimmed(cfg.AllowedOrigins)
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	methods := trimmed(cfg.AllowedMethods)
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := trimmed(cfg.AllowedHeaders)
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	fixed := corsHeaders{
		methods: strings.Join(methods, ", "),
		headers: strings.Join(headers, ", "),
	}
	if secs := int(cfg.MaxAge / time.Second); secs > 0 {
		fixed.maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !OriginAllowed(origin, origins) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if containsString(origins, "*") && !cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				h.Set("Access-Control-Expose-Headers", RequestIDHeader)
				next.ServeHTTP(w, r)
				return
			}

			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Methods", fixed.methods)
			h.Set("Access-Control-Allow-Headers", fixed.headers)
			if fixed.maxAge != "" {
				h.Set("Access-Control-Max-Age", fixed.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// OriginAllowed reports whether origin matches one of the allowed entries.
func OriginAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		switch {
		case candidate == "*":
			return true
		case strings.EqualFold(candidate, origin):
			return true
		case strings.Contains(candidate, "://*."):
			scheme, host, _ := strings.Cut(candidate, "://*.")
			prefix := scheme + "://"
			if len(origin) > len(prefix) && strings.EqualFold(origin[:len(prefix)], prefix) &&
				strings.HasSuffix(strings.ToLower(origin), "."+strings.ToLower(host)) {
				return true
			}
		}
	}
	return false
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
