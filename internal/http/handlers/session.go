package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/fleet-portal/internal/errors"
	"github.com/pribylovaa/fleet-portal/internal/models"
	"github.com/pribylovaa/fleet-portal/internal/session"
)

// Session — GET /session: что портал знает о пользователе. Анонимный — 200 с authenticated=false.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, models.SessionFromIdentity(session.IdentityFrom(r.Context())))
}

// Claims — GET /claims: claims в разборе бэкенда. Бэкенду предъявляется токен
// из Identity, то есть уже ротированный, если шлюз его обновил в этом запросе.
func (h *Handlers) Claims(w http.ResponseWriter, r *http.Request) {
	token, ok := session.IdentityFrom(r.Context()).AccessToken()
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
		return
	}

	raw, err := h.Backend.Claims(r.Context(), token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, raw)
}

// Logout — POST /logout: удаляет обе cookie. Идемпотентен.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Store.ClearPair(w)
	w.WriteHeader(http.StatusNoContent)
}

// AdminPing — GET /admin/ping, за RequireAdmin.
func (h *Handlers) AdminPing(w http.ResponseWriter, r *http.Request) {
	id := session.IdentityFrom(r.Context())
	name, _ := id.DisplayName()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "admin": name})
}
