package middleware

import (
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/fleet-portal/internal/pkg/log"
	"github.com/pribylovaa/fleet-portal/internal/pkg/requestid"
)

// Logging кладёт в контекст request-scoped логгер (с request_id) и по завершении
// пишет одну запись "http". Ставится после RequestID.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := requestid.From(r.Context()); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			r = r.WithContext(logctx.Into(r.Context(), reqLogger))

			// sub появляется только во внутреннем контексте (Session), наружу
			// его выносит statusWriter.
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("dur", dur),
				slog.Int("bytes", sw.count),
			}
			if sub := sw.sub; sub != "" {
				attrs = append(attrs, slog.String("sub", sub))
			}

			lvl := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				lvl = slog.LevelError
			}
			logctx.From(r.Context()).LogAttrs(r.Context(), lvl, "http", attrs...)
		})
	}
}
