package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/fleet-portal/internal/pkg/log"
	"github.com/pribylovaa/fleet-portal/internal/pkg/requestid"
)

// ClientLogging — логирование исходящих вызовов.
// Поведение:
//   - берёт логгер запроса из контекста (pkg/log), без него — base;
//   - добавляет поля method/host/path (и request_id, если логгер не из контекста);
//   - пишет одну финальную запись: msg="backend_http", status, dur.
//     Ответы 5xx и транспортные ошибки — Warn, остальное — Debug.
//
// Безопасность: не логирует тело, query и заголовки (там токены).
func ClientLogging(base *slog.Logger) Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("host", r.URL.Host),
				slog.String("path", r.URL.Path),
			}

			// Логгер запроса уже несёт request_id.
			l, ok := log.Lookup(r.Context())
			if !ok {
				l = base
				if rid := requestid.From(r.Context()); rid != "" {
					attrs = append(attrs, slog.String("request_id", rid))
				}
			}

			resp, err := next.RoundTrip(r)

			lvl := slog.LevelDebug
			switch {
			case err != nil:
				lvl = slog.LevelWarn
				attrs = append(attrs, slog.String("err", err.Error()))
			default:
				attrs = append(attrs, slog.Int("status", resp.StatusCode))
				if resp.StatusCode >= http.StatusInternalServerError {
					lvl = slog.LevelWarn
				}
			}
			attrs = append(attrs, slog.Duration("dur", time.Since(start)))

			l.LogAttrs(r.Context(), lvl, "backend_http", attrs...)
			return resp, err
		})
	}
}
