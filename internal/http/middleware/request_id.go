package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/fleet-portal/internal/pkg/requestid"
)

// maxRequestIDLen — входящие id длиннее считаем мусором и заменяем своим.
const maxRequestIDLen = 128

// RequestID обеспечивает наличие X-Request-Id:
//  1. читает заголовок X-Request-Id, если он есть и разумной длины;
//  2. иначе генерирует UUIDv4;
//  3. кладёт id в Response Header, Request Header и в контекст (requestid.Into),
//     откуда его забирают логгер, ответы об ошибках и клиент бэкенда.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestid.Header)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
				r.Header.Set(requestid.Header, id)
			}
			w.Header().Set(requestid.Header, id)

			ctx := requestid.Into(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
