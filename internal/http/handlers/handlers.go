package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/fleet-portal/internal/session"
)

// ClaimsFetcher — вызов бэкенда от имени пользователя (*backend.Client).
type ClaimsFetcher interface {
	Claims(ctx context.Context, accessToken string) (json.RawMessage, error)
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	Backend ClaimsFetcher
	Store   *session.CookieStore
}

func New(b ClaimsFetcher, store *session.CookieStore) *Handlers {
	return &Handlers{Backend: b, Store: store}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
