// Модели JSON, которыми портал обменивается с бэкендом и браузером.
package models

// TokenPairResponse — ответ бэкенда на /token и /refresh.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ErrorMessage — тело ошибки бэкенда (HTTP 4xx/5xx).
type ErrorMessage struct {
	Message string `json:"message,omitempty"`
}
