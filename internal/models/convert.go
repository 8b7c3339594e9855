package models

import "github.com/pribylovaa/fleet-portal/internal/session"

func (m TokenPairResponse) ToCredentials() session.CredentialPair {
	return session.CredentialPair{
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
	}
}

// SessionFromIdentity строит SessionView; для анонимной Identity — нулевое значение.
func SessionFromIdentity(id session.Identity) SessionView {
	c, ok := id.Claims()
	if !ok {
		return SessionView{}
	}
	name, _ := id.DisplayName()
	return SessionView{
		Authenticated: true,
		Admin:         id.IsAdmin(),
		Name:          name,
		Subject:       c.Subject,
		Role:          string(c.Role),
		ExpiresAt:     c.ExpiresAt.Unix(),
	}
}
