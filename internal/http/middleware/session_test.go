package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/fleet-portal/internal/session"
)

// mintToken — подписанный HS256 access-токен; подпись шлюз не проверяет.
func mintToken(t *testing.T, sub string, role session.Role, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"name": "Driver " + sub,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

type noRefresh struct{}

func (noRefresh) Refresh(ctx context.Context, _, _ string) (session.CredentialPair, error) {
	return session.CredentialPair{}, session.ErrRefreshRejected
}

func newGate() (*session.Gate, *session.CookieStore) {
	store := session.NewCookieStore("", "", 1)
	return session.NewGate(store, noRefresh{}), store
}

func withCookie(req *http.Request, name, value string) *http.Request {
	req.AddCookie(&http.Cookie{Name: name, Value: value})
	return req
}

func TestSession_PutsIdentityIntoContext(t *testing.T) {
	gate, store := newGate()

	var got session.Identity
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = session.IdentityFrom(r.Context())
	})

	req := withCookie(makeReq("/s"), store.AccessName(), mintToken(t, "u-1", session.RoleStandard, time.Hour))
	Chain(h, Session(gate)).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, got.IsAuthenticated())
	c, ok := got.Claims()
	require.True(t, ok)
	require.Equal(t, "u-1", c.Subject)
}

func TestSession_AnonymousPassesThrough(t *testing.T) {
	gate, _ := newGate()

	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.False(t, session.IdentityFrom(r.Context()).IsAuthenticated())
	})

	rr := httptest.NewRecorder()
	Chain(h, Session(gate)).ServeHTTP(rr, makeReq("/s"))

	require.True(t, called)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Result().Cookies())
}

func TestSession_LoggingSeesSubject(t *testing.T) {
	gate, store := newGate()
	ch := &capHandler{}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Chain(final, RequestID(), Logging(slog.New(ch)), Session(gate))

	req := withCookie(makeReq("/s"), store.AccessName(), mintToken(t, "u-7", session.RoleStandard, time.Hour))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "http", ch.lastMsg)
	require.Equal(t, "u-7", ch.attrs["sub"])
}

func TestRequireAuth(t *testing.T) {
	gate, store := newGate()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := Chain(ok, Session(gate), RequireAuth())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, makeReq("/p"))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "unauthenticated", env.Error.Code)

	rr = httptest.NewRecorder()
	req := withCookie(makeReq("/p"), store.AccessName(), mintToken(t, "u-1", session.RoleStandard, time.Hour))
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireAdmin(t *testing.T) {
	gate, store := newGate()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := Chain(ok, Session(gate), RequireAdmin())

	tcs := []struct {
		name  string
		token string
		want  int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"standard", mintToken(t, "u-1", session.RoleStandard, time.Hour), http.StatusForbidden},
		{"unknown_role", mintToken(t, "u-2", session.Role("OPS"), time.Hour), http.StatusForbidden},
		{"admin", mintToken(t, "u-3", session.RoleAdmin, time.Hour), http.StatusOK},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			req := makeReq("/admin")
			if tc.token != "" {
				req = withCookie(req, store.AccessName(), tc.token)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tc.want, rr.Code)
		})
	}
}
