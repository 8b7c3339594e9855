package session

import (
	"net/http"
	"time"
)

const (
	DefaultAccessCookie  = "ACSS_TOKN_COOKIE"
	DefaultRefreshCookie = "RFSH_TOKN_COOKIE"
)

// CredentialPair — пара access/refresh. Оба значения непрозрачны.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}

// CookieStore — единственный путь чтения и записи cookie с учётными данными.
//
// Атрибуты записи фиксированы: срок now+TTLMonths, HttpOnly, Path "/",
// SameSite=Strict, Secure. Значение без состояния, безопасно для конкурентного использования.
type CookieStore struct {
	accessName  string
	refreshName string
	ttlMonths   int
	now         func() time.Time
}

// NewCookieStore создаёт хранилище. Пустые имена заменяются на значения по умолчанию,
// ttlMonths <= 0 — на один месяц.
func NewCookieStore(accessName, refreshName string, ttlMonths int) *CookieStore {
	if accessName == "" {
		accessName = DefaultAccessCookie
	}
	if refreshName == "" {
		refreshName = DefaultRefreshCookie
	}
	if ttlMonths <= 0 {
		ttlMonths = 1
	}
	return &CookieStore{
		accessName:  accessName,
		refreshName: refreshName,
		ttlMonths:   ttlMonths,
		now:         time.Now,
	}
}

func (s *CookieStore) AccessName() string  { return s.accessName }
func (s *CookieStore) RefreshName() string { return s.refreshName }

// Read возвращает значение cookie name; пустое значение считается отсутствием.
func (s *CookieStore) Read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Write выставляет cookie name=value с фиксированными атрибутами.
func (s *CookieStore) Write(w http.ResponseWriter, name, value string) {
	c := s.base(name)
	c.Value = value
	c.Expires = s.now().AddDate(0, s.ttlMonths, 0)
	http.SetCookie(w, c)
}

// Clear удаляет cookie name у клиента.
func (s *CookieStore) Clear(w http.ResponseWriter, name string) {
	c := s.base(name)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// ReadPair читает обе cookie; отсутствующие значения пустые.
func (s *CookieStore) ReadPair(r *http.Request) CredentialPair {
	access, _ := s.Read(r, s.accessName)
	refresh, _ := s.Read(r, s.refreshName)
	return CredentialPair{AccessToken: access, RefreshToken: refresh}
}

func (s *CookieStore) WritePair(w http.ResponseWriter, p CredentialPair) {
	s.Write(w, s.accessName, p.AccessToken)
	s.Write(w, s.refreshName, p.RefreshToken)
}

func (s *CookieStore) ClearPair(w http.ResponseWriter) {
	s.Clear(w, s.accessName)
	s.Clear(w, s.refreshName)
}

func (s *CookieStore) base(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
