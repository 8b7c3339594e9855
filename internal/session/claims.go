package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role — роль учётной записи в том виде, в каком её кладёт бэкенд в claim "role".
type Role string

const (
	RoleAdmin    Role = "ADM"
	RoleStandard Role = "STD"
)

// Claims — нормализованная полезная нагрузка access-токена.
//
// Временные поля нулевые, если claim отсутствует. Claims живут только в рамках
// запроса и каждый раз восстанавливаются из cookie.
type Claims struct {
	Subject   string
	Name      string
	Role      Role
	TokenID   string
	Type      string
	Disabled  bool
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time

	// fields — число непустых claims в исходной нагрузке.
	fields int
}

// IsAdmin сообщает, выдан ли токен администратору.
func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// Validate проверяет инварианты claims относительно момента now:
// нагрузка непустая, sub есть, exp задан, nbf (если задан) не в будущем.
// Подпись, issuer и audience не проверяются: это делает бэкенд на каждом вызове API.
func (c Claims) Validate(now time.Time) error {
	if err := c.validateShape(); err != nil {
		return err
	}
	return c.validateNotBefore(now)
}

func (c Claims) validateShape() error {
	const op = "session.Claims.validateShape"

	switch {
	case c.fields == 0:
		return fmt.Errorf("%s: no claims: %w", op, ErrClaimsInvalid)
	case c.Subject == "":
		return fmt.Errorf("%s: no subject: %w", op, ErrClaimsInvalid)
	case c.ExpiresAt.IsZero():
		return fmt.Errorf("%s: no expiry: %w", op, ErrClaimsInvalid)
	}
	return nil
}

func (c Claims) validateNotBefore(now time.Time) error {
	const op = "session.Claims.validateNotBefore"

	if !c.NotBefore.IsZero() && c.NotBefore.Unix() > now.Unix() {
		return fmt.Errorf("%s: not yet valid: %w", op, ErrClaimsInvalid)
	}
	return nil
}

var unverified = jwt.NewParser()

// Decode разбирает токен без проверки подписи.
//
// Возвращает ErrDecode, если строка структурно не JWT, и ErrClaimsInvalid,
// если стандартный claim имеет неверный тип. Функция чистая.
func Decode(token string) (Claims, error) {
	const op = "session.Decode"

	mc := jwt.MapClaims{}
	parsed, _, err := unverified.ParseUnverified(token, mc)
	if err != nil {
		// Незнакомый alg не мешает прочитать нагрузку: подпись мы всё равно не проверяем.
		if parsed == nil || !errors.Is(err, jwt.ErrTokenUnverifiable) {
			return Claims{}, fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
		}
	}

	c := Claims{fields: countPopulated(mc)}

	if c.Subject, err = mc.GetSubject(); err != nil {
		return Claims{}, fmt.Errorf("%s: sub: %w", op, ErrClaimsInvalid)
	}
	if c.IssuedAt, err = numericDate(mc.GetIssuedAt()); err != nil {
		return Claims{}, fmt.Errorf("%s: iat: %w", op, ErrClaimsInvalid)
	}
	if c.NotBefore, err = numericDate(mc.GetNotBefore()); err != nil {
		return Claims{}, fmt.Errorf("%s: nbf: %w", op, ErrClaimsInvalid)
	}
	if c.ExpiresAt, err = numericDate(mc.GetExpirationTime()); err != nil {
		return Claims{}, fmt.Errorf("%s: exp: %w", op, ErrClaimsInvalid)
	}

	c.Name, _ = mc["name"].(string)
	c.TokenID, _ = mc["jti"].(string)
	c.Type, _ = mc["type"].(string)
	c.Disabled, _ = mc["disabled"].(bool)
	if role, ok := mc["role"].(string); ok {
		c.Role = Role(role)
	}

	return c, nil
}

func numericDate(d *jwt.NumericDate, err error) (time.Time, error) {
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, nil
	}
	return d.Time, nil
}

// countPopulated — сколько claims несут значение (null и "" не считаются).
func countPopulated(mc jwt.MapClaims) int {
	n := 0
	for _, v := range mc {
		switch val := v.(type) {
		case nil:
		case string:
			if val != "" {
				n++
			}
		default:
			n++
		}
	}
	return n
}
