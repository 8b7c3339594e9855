package session

import "errors"

// Ошибки шлюза сессии. Ни одна из них не превращается в ошибку запроса:
// любая ветка с ошибкой приводит к анонимной Identity, запрос идёт дальше.
var (
	// ErrDecode — значение cookie не является разбираемым JWT
	// (битые сегменты, не-base64, не-JSON полезная нагрузка).
	ErrDecode = errors.New("token decode failed")

	// ErrClaimsInvalid — claims разобраны, но непригодны: пустые, без sub/exp,
	// nbf в будущем или поле неверного типа.
	ErrClaimsInvalid = errors.New("token claims invalid")

	// ErrRefreshRejected — бэкенд отказал в обновлении пары
	// (refresh истёк, отозван или не подходит к access).
	ErrRefreshRejected = errors.New("refresh rejected")

	// ErrRefreshUnavailable — бэкенд недоступен: сеть, таймаут, 5xx.
	ErrRefreshUnavailable = errors.New("refresh unavailable")

	// ErrNoRefreshToken — access истёк, а refresh-cookie нет.
	ErrNoRefreshToken = errors.New("refresh token missing")

	// ErrInternal — непредвиденный сбой внутри шлюза (в т.ч. panic).
	ErrInternal = errors.New("internal gate error")
)
