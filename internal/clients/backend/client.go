// backend — HTTP-клиент API бэкенда: ротация пары токенов и вызовы
// от имени пользователя с его текущим access-токеном.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pribylovaa/fleet-portal/internal/clients/interceptors"
	"github.com/pribylovaa/fleet-portal/internal/config"
	"github.com/pribylovaa/fleet-portal/internal/models"
	"github.com/pribylovaa/fleet-portal/internal/session"
)

const (
	tracerName = "github.com/pribylovaa/fleet-portal/internal/clients/backend"
	userAgent  = "fleet-portal"

	// maxBody — верхняя граница читаемого тела ответа.
	maxBody = 1 << 20

	genericMessage = "unexpected backend error"
)

// ErrUnavailable — бэкенд не ответил: сеть, таймаут, нечитаемый ответ.
var ErrUnavailable = errors.New("backend unavailable")

// APIError — бэкенд ответил не-2xx статусом.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// HTTPStatus — исходный статус ответа бэкенда.
func (e *APIError) HTTPStatus() int { return e.Status }

// Client — клиент бэкенда. Без состояния, безопасен для конкурентного использования.
type Client struct {
	baseURL     string
	refreshPath string
	claimsPath  string
	timeout     time.Duration
	http        *http.Client
	tracer      trace.Tracer
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient заменяет http.Client целиком, вместе с перехватчиками транспорта.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// New создаёт клиент по конфигурации бэкенда.
func New(cfg config.BackendConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		refreshPath: cfg.RefreshPath,
		claimsPath:  cfg.ClaimsPath,
		timeout:     cfg.Timeout,
		tracer:      otel.Tracer(tracerName),
		http: &http.Client{
			Transport: interceptors.Chain(http.DefaultTransport,
				interceptors.ClientWithMetadata(userAgent),
				interceptors.ClientLogging(nil),
			),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh обменивает access (возможно истёкший) и refresh на новую пару.
//
// Ответ 4xx или 2xx без одного из токенов — session.ErrRefreshRejected;
// 5xx, сетевые ошибки и таймаут — session.ErrRefreshUnavailable.
// Ошибка также несёт *APIError или ErrUnavailable для логов.
func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (session.CredentialPair, error) {
	const op = "clients.backend.Refresh"

	ctx, span := c.tracer.Start(ctx, "backend.refresh", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	form := url.Values{"refresh_token": {refreshToken}}
	var out models.TokenPairResponse
	err := c.do(ctx, span, http.MethodPost, c.refreshPath, accessToken,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out)
	if err == nil && (out.AccessToken == "" || out.RefreshToken == "") {
		err = errors.New("incomplete token pair")
		err = fmt.Errorf("%s: %w: %w", op, session.ErrRefreshRejected, err)
		failSpan(span, err)
		return session.CredentialPair{}, err
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			err = fmt.Errorf("%s: %w: %w", op, session.ErrRefreshRejected, err)
		} else {
			err = fmt.Errorf("%s: %w: %w", op, session.ErrRefreshUnavailable, err)
		}
		failSpan(span, err)
		return session.CredentialPair{}, err
	}

	span.SetStatus(codes.Ok, "")
	return out.ToCredentials(), nil
}

// Claims возвращает claims токена в разборе бэкенда (с проверкой подписи).
// Тело ответа отдаётся как есть.
func (c *Client) Claims(ctx context.Context, accessToken string) (json.RawMessage, error) {
	const op = "clients.backend.Claims"

	ctx, span := c.tracer.Start(ctx, "backend.claims", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var out json.RawMessage
	if err := c.do(ctx, span, http.MethodGet, c.claimsPath, accessToken, "", nil, &out); err != nil {
		err = fmt.Errorf("%s: %w", op, err)
		failSpan(span, err)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// do выполняет запрос к бэкенду. Таймаут клиента не продлевает более ранний
// дедлайн контекста, а только сокращает его.
func (c *Client) do(ctx context.Context, span trace.Span, method, path, bearer, contentType string, body io.Reader, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + path
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", target),
	)

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode body: %w", ErrUnavailable, err)
	}
	return nil
}

// errorMessage достаёт поле message из тела ошибки бэкенда.
func errorMessage(data []byte) string {
	var em models.ErrorMessage
	if err := json.Unmarshal(data, &em); err != nil || em.Message == "" {
		return genericMessage
	}
	return em.Message
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
