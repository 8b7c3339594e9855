package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pribylovaa/fleet-portal/internal/config"
	"github.com/pribylovaa/fleet-portal/internal/pkg/requestid"
	"github.com/pribylovaa/fleet-portal/internal/session"
)

const (
	refreshPath = "/api/v1/authorisation/refresh"
	claimsPath  = "/api/v1/authorisation/claims"
)

// newTestClient поднимает httptest-бэкенд с обработчиком h и клиент к нему.
func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *tracetest.SpanRecorder) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	cfg := config.BackendConfig{
		BaseURL:     srv.URL + "/",
		RefreshPath: refreshPath,
		ClaimsPath:  claimsPath,
		Timeout:     time.Second,
	}
	opts = append([]Option{WithTracerProvider(tp)}, opts...)
	return New(cfg, opts...), rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRefresh_OK_SendsBearerAndForm(t *testing.T) {
	t.Parallel()

	var (
		gotMethod, gotPath, gotAuth, gotCT, gotRID, gotForm string
	)
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotRID = r.Header.Get(requestid.Header)
		_ = r.ParseForm()
		gotForm = r.PostForm.Get("refresh_token")

		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  "A2",
			"refresh_token": "R2",
			"token_type":    "bearer",
		})
	})

	ctx := requestid.Into(context.Background(), "rid-42")
	pair, err := c.Refresh(ctx, "A1", "R1")
	require.NoError(t, err)
	require.Equal(t, session.CredentialPair{AccessToken: "A2", RefreshToken: "R2"}, pair)

	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, refreshPath, gotPath)
	require.Equal(t, "Bearer A1", gotAuth)
	require.Equal(t, "application/x-www-form-urlencoded", gotCT)
	require.Equal(t, "rid-42", gotRID)
	require.Equal(t, "R1", gotForm)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "backend.refresh", spans[0].Name())
	require.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestRefresh_4xx_Rejected(t *testing.T) {
	t.Parallel()

	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh token revoked"})
	})

	_, err := c.Refresh(context.Background(), "A1", "R1")
	require.Error(t, err)
	require.ErrorIs(t, err, session.ErrRefreshRejected)
	require.NotErrorIs(t, err, session.ErrRefreshUnavailable)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus())
	require.Equal(t, "refresh token revoked", apiErr.Message)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestRefresh_5xx_Unavailable(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := c.Refresh(context.Background(), "A1", "R1")
	require.ErrorIs(t, err, session.ErrRefreshUnavailable)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, genericMessage, apiErr.Message)
}

func TestRefresh_IncompletePair_Rejected(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "A2"})
	})

	_, err := c.Refresh(context.Background(), "A1", "R1")
	require.ErrorIs(t, err, session.ErrRefreshRejected)
}

func TestRefresh_BrokenJSON_Unavailable(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := c.Refresh(context.Background(), "A1", "R1")
	require.ErrorIs(t, err, session.ErrRefreshUnavailable)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRefresh_Timeout_Unavailable(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Refresh(ctx, "A1", "R1")
	require.ErrorIs(t, err, session.ErrRefreshUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
}

func TestRefresh_ConnectionRefused_Unavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(config.BackendConfig{BaseURL: url, RefreshPath: refreshPath, Timeout: time.Second})
	_, err := c.Refresh(context.Background(), "A1", "R1")
	require.ErrorIs(t, err, session.ErrRefreshUnavailable)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestClaims_OK_ReturnsRawBody(t *testing.T) {
	t.Parallel()

	var gotAuth string
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, claimsPath, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"sub": "u-1", "role": "ADM"})
	})

	raw, err := c.Claims(context.Background(), "A2")
	require.NoError(t, err)
	require.Equal(t, "Bearer A2", gotAuth)
	require.JSONEq(t, `{"sub":"u-1","role":"ADM"}`, string(raw))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "backend.claims", spans[0].Name())
}

func TestClaims_BackendError_KeepsStatus(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "account disabled"})
	})

	_, err := c.Claims(context.Background(), "A2")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, "account disabled", apiErr.Message)
}

func TestWithHTTPClient_NilIgnored(t *testing.T) {
	t.Parallel()

	c := New(config.BackendConfig{BaseURL: "http://x"}, WithHTTPClient(nil), WithTracerProvider(nil))
	require.NotNil(t, c.http)
	require.NotNil(t, c.tracer)
}
