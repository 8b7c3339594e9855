package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/fleet-portal/internal/models"
	"github.com/pribylovaa/fleet-portal/internal/session"
)

type stubBackend struct {
	called bool
}

func (s *stubBackend) Claims(context.Context, string) (json.RawMessage, error) {
	s.called = true
	return nil, errors.New("must not be called")
}

func TestSession_AnonymousView(t *testing.T) {
	h := New(&stubBackend{}, session.NewCookieStore("", "", 1))

	rr := httptest.NewRecorder()
	h.Session(rr, httptest.NewRequest(http.MethodGet, "/session", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	var v models.SessionView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	require.Equal(t, models.SessionView{}, v)
}

// Без Identity в контексте обработчик не идёт в бэкенд.
func TestClaims_WithoutIdentity_401(t *testing.T) {
	b := &stubBackend{}
	h := New(b, session.NewCookieStore("", "", 1))

	rr := httptest.NewRecorder()
	h.Claims(rr, httptest.NewRequest(http.MethodGet, "/claims", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.False(t, b.called)
}

func TestLogout_Idempotent(t *testing.T) {
	store := session.NewCookieStore("AT", "RT", 1)
	h := New(&stubBackend{}, store)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.Logout(rr, httptest.NewRequest(http.MethodPost, "/logout", nil))
		require.Equal(t, http.StatusNoContent, rr.Code)

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 2)
		for _, c := range cookies {
			require.Empty(t, c.Value)
			require.True(t, c.HttpOnly)
			require.True(t, c.Secure)
		}
	}
}
