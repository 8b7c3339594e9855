// errors стандартизирует ответы об ошибках HTTP-слоя портала.
// На вход он принимает ошибку (доменную ошибку сессии или ответ бэкенда),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/fleet-portal/internal/clients/backend"
	"github.com/pribylovaa/fleet-portal/internal/pkg/requestid"
	"github.com/pribylovaa/fleet-portal/internal/session"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrUnauthenticated — обработчику нужна аутентифицированная Identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden — Identity есть, но роли недостаточно.
	ErrForbidden = errors.New("forbidden")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует входную ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг.
//   - ErrUnauthenticated и отказ в refresh - 401; ErrForbidden - 403.
//   - ответ бэкенда 4xx - тот же статус, message бэкенда;
//     5xx и недоступность бэкенда - 503.
//   - дедлайн - 504, отмена клиентом - 499.
//   - прочее - 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	httpStatus, code, msg := classify(err)
	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

func classify(err error) (int, string, string) {
	var apiErr *backend.APIError

	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, session.ErrRefreshRejected):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "permission_denied", "permission denied"
	case errors.As(err, &apiErr):
		if apiErr.Status >= http.StatusInternalServerError {
			return http.StatusServiceUnavailable, "unavailable", "service unavailable"
		}
		return apiErr.Status, codeFromStatus(apiErr.Status), apiErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, backend.ErrUnavailable), errors.Is(err, session.ErrRefreshUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// codeFromStatus — FE-код для проброшенного 4xx бэкенда.
func codeFromStatus(s int) string {
	switch s {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "already_exists"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	default:
		return "backend_error"
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	rid := requestid.From(r.Context())
	if rid == "" {
		rid = r.Header.Get(requestid.Header)
	}
	resp.Error.RequestID = rid

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
