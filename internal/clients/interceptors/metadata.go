package interceptors

import (
	"net/http"

	"github.com/pribylovaa/fleet-portal/internal/pkg/requestid"
)

// ClientWithMetadata добавляет в исходящий запрос заголовки:
//   - X-Request-Id (если есть в контексте),
//   - User-Agent (если передан параметром).
//
// Authorization выставляет сам клиент: токен — аргумент вызова, а не часть контекста.
// Исходный запрос не модифицируется (контракт RoundTripper).
func ClientWithMetadata(userAgent string) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			rid := requestid.From(r.Context())
			if rid == "" && userAgent == "" {
				return next.RoundTrip(r)
			}

			r = r.Clone(r.Context())
			if rid != "" {
				r.Header.Set(requestid.Header, rid)
			}
			if userAgent != "" {
				r.Header.Set("User-Agent", userAgent)
			}
			return next.RoundTrip(r)
		})
	}
}
