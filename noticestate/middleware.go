package noticestate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/noticepanel/idgen"
	"github.com/hazyhaar/noticepanel/kit"
)

type loggerKey struct{}

// traceID tags each request with a trace id, echoed in X-Trace-ID, and a
// request logger carrying it.
func traceID(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := kit.NewTraceID()
			ctx := kit.WithTraceID(r.Context(), id)
			ctx = kit.WithRequestID(ctx, idgen.New())
			w.Header().Set("X-Trace-ID", id)

			logger := base.With("trace_id", id, "method", r.Method, "path", r.URL.Path)
			ctx = context.WithValue(ctx, loggerKey{}, logger)

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.Debug("noticestate: request", "duration", time.Since(start))
		})
	}
}

func requestLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// securityHeaders sets the headers every JSON response carries.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// maxBody caps request bodies.
func maxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
