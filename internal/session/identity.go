package session

import "context"

// Identity — результат работы шлюза для одного запроса.
//
// Значение неизменяемо: поля закрыты, наружу отдаются копии. Нулевое значение —
// анонимный пользователь (claims, имя и токен отсутствуют).
type Identity struct {
	claims        Claims
	authenticated bool
	accessToken   string
}

// Anonymous — Identity по умолчанию.
func Anonymous() Identity { return Identity{} }

func authenticated(c Claims, accessToken string) Identity {
	return Identity{claims: c, authenticated: true, accessToken: accessToken}
}

// Claims возвращает claims, если пользователь аутентифицирован.
func (i Identity) Claims() (Claims, bool) {
	if !i.authenticated {
		return Claims{}, false
	}
	return i.claims, true
}

func (i Identity) IsAuthenticated() bool { return i.authenticated }

func (i Identity) IsAdmin() bool { return i.authenticated && i.claims.IsAdmin() }

// DisplayName — claim "name"; false, если пользователь анонимный или имени нет.
func (i Identity) DisplayName() (string, bool) {
	if !i.authenticated || i.claims.Name == "" {
		return "", false
	}
	return i.claims.Name, true
}

// AccessToken — токен, который обработчики обязаны предъявлять бэкенду.
// После ротации в этом же запросе это уже новый токен, а не входящая cookie.
func (i Identity) AccessToken() (string, bool) {
	if !i.authenticated || i.accessToken == "" {
		return "", false
	}
	return i.accessToken, true
}

type identityKey struct{}

// WithIdentity кладёт Identity в контекст запроса.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom достаёт Identity из контекста; без неё — Anonymous().
func IdentityFrom(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous()
}
