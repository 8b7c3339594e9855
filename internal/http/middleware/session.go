package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/fleet-portal/internal/errors"
	logctx "github.com/pribylovaa/fleet-portal/internal/pkg/log"
	"github.com/pribylovaa/fleet-portal/internal/session"
)

// Evaluator — шлюз сессии (*session.Gate).
type Evaluator interface {
	Evaluate(ctx context.Context, w http.ResponseWriter, r *http.Request) session.Result
}

// Session прогоняет шлюз для каждого запроса и кладёт Identity в контекст.
// Запрос не отклоняется: анонимный пользователь тоже проходит дальше,
// доступ решают RequireAuth/RequireAdmin.
func Session(g Evaluator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			res := g.Evaluate(ctx, w, r)

			ctx = session.WithIdentity(ctx, res.Identity)
			if c, ok := res.Identity.Claims(); ok {
				ctx = logctx.With(ctx, slog.String("sub", c.Subject))
				if sw, ok := w.(*statusWriter); ok {
					sw.sub = c.Subject
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth пропускает только аутентифицированные запросы, остальным — 401.
func RequireAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !session.IdentityFrom(r.Context()).IsAuthenticated() {
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin: анонимным — 401, аутентифицированным без роли ADM — 403.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := session.IdentityFrom(r.Context())
			switch {
			case !id.IsAuthenticated():
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			case !id.IsAdmin():
				apierrors.WriteError(w, r, apierrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
