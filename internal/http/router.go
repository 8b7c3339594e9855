package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/pribylovaa/fleet-portal/internal/http/handlers"
	"github.com/pribylovaa/fleet-portal/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger         *slog.Logger
	Timeout        time.Duration
	BasePath       string // например, "/api"; если пустой — роуты регистрируются на корне.
	TracerProvider trace.TracerProvider
	Metrics        middleware.HTTPObserver // nil — без метрик запросов.
}

// Deps — зависимости роутера.
type Deps struct {
	Gate     middleware.Evaluator
	Handlers *handlers.Handlers
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(d Deps, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),                    // безопасно ловим паники
		middleware.RequestID(),                  // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),         // кладём request-scoped логгер в контекст и логируем
		middleware.Tracing(opts.TracerProvider), // серверный span
	)
	if opts.Metrics != nil {
		root.Use(middleware.Metrics(opts.Metrics))
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса, в т.ч. на ротацию токенов
	}

	// Регистрация маршрутов.
	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, d)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, d)
	return root
}

// registerRoutes — единая точка регистрации REST-эндпойнтов. Шлюз сессии стоит
// на всех маршрутах: cookie читаются и при необходимости ротируются до обработчика.
func registerRoutes(r chi.Router, d Deps) {
	h := d.Handlers

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(d.Gate))

		r.Get("/session", h.Session)
		r.Post("/logout", h.Logout)

		r.With(middleware.RequireAuth()).Get("/claims", h.Claims)
		r.With(middleware.RequireAdmin()).Get("/admin/ping", h.AdminPing)
	})
}
