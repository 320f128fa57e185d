// internal/middleware/requestlog.go
//
// One structured line per request.
//
// Logged keys: method, path, status, bytes, duration, and the chi request
// ID when the RequestID middleware runs first.  5xx responses log at
// ERROR, 4xx at WARN, everything else at INFO.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLog returns middleware that logs each request to log.
func RequestLog(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				kv = append(kv, "request_id", id)
			}

			switch {
			case status >= 500:
				log.Errorw("http request", kv...)
			case status >= 400:
				log.Warnw("http request", kv...)
			default:
				log.Infow("http request", kv...)
			}
		})
	}
}
