package models

// SessionView — то, что браузер видит о текущей сессии. Токены сюда не попадают.
type SessionView struct {
	Authenticated bool   `json:"authenticated"`
	Admin         bool   `json:"admin"`
	Name          string `json:"name,omitempty"`
	Subject       string `json:"subject,omitempty"`
	Role          string `json:"role,omitempty"`
	ExpiresAt     int64  `json:"expires_at,omitempty"` // Unix UTC
}
