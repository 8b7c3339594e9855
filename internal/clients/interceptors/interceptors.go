// interceptors предоставляет набор клиентских перехватчиков исходящих
// HTTP-вызовов (обёртки http.RoundTripper).
package interceptors

import "net/http"

// Interceptor оборачивает транспорт.
type Interceptor func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc — функция как http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain применяет перехватчики в порядке перечисления: первый — внешний.
// nil base — http.DefaultTransport.
func Chain(base http.RoundTripper, ics ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(ics) - 1; i >= 0; i-- {
		base = ics[i](base)
	}
	return base
}
