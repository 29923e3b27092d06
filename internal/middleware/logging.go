package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type LoggingConfig struct {
	AccessLogger *zerolog.Logger // optional separate access logger
	SkipPaths    []string
	SlowRequest  time.Duration
}

// Logging writes one access log line per request: WARN for 4xx, ERROR for
// 5xx, INFO otherwise. It relies on chi's RequestID middleware running first.
func Logging(cfg LoggingConfig) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	slow := cfg.SlowRequest
	if slow <= 0 {
		slow = time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			logger := log.Logger
			if cfg.AccessLogger != nil {
				logger = *cfg.AccessLogger
			}
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := logger.Info()
			if status >= 500 {
				event = logger.Error()
			} else if status >= 400 {
				event = logger.Warn()
			}
			path := r.URL.Path
			if r.URL.RawQuery != "" {
				path += "?" + r.URL.RawQuery
			}
			requestID := chimw.GetReqID(r.Context())
			if uid, ok := UserIDFromContext(r.Context()); ok {
				event = event.Str("user_id", uid)
			}
			event.
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", path).
				Int("status", status).
				Int64("duration_ms", duration.Milliseconds()).
				Int("response_size", ww.BytesWritten()).
				Str("ip", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")

			if duration > slow {
				log.Warn().Str("request_id", requestID).Str("method", r.Method).
					Str("path", r.URL.Path).Int64("duration_ms", duration.Milliseconds()).
					Msg("slow request")
			}
		})
	}
}
