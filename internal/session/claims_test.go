package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, mc jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, mc).SignedString(key)
	require.NoError(t, err)
	return s
}

// Round-trip: то, что положил издатель, читается обратно без потерь.
func TestDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	iat := time.Unix(1_700_000_000, 0)
	tok := sign(t, jwt.SigningMethodHS256, []byte("k"), jwt.MapClaims{
		"sub":      "u1",
		"name":     "Alice",
		"role":     "ADM",
		"jti":      "t-1",
		"type":     "access",
		"disabled": false,
		"iat":      iat.Unix(),
		"nbf":      iat.Unix(),
		"exp":      iat.Add(time.Hour).Unix(),
	})

	c, err := Decode(tok)
	require.NoError(t, err)

	require.Equal(t, "u1", c.Subject)
	require.Equal(t, "Alice", c.Name)
	require.Equal(t, RoleAdmin, c.Role)
	require.True(t, c.IsAdmin())
	require.Equal(t, "t-1", c.TokenID)
	require.Equal(t, "access", c.Type)
	require.False(t, c.Disabled)
	require.Equal(t, iat.Unix(), c.IssuedAt.Unix())
	require.Equal(t, iat.Unix(), c.NotBefore.Unix())
	require.Equal(t, iat.Add(time.Hour).Unix(), c.ExpiresAt.Unix())
	require.Equal(t, 9, c.fields)
}

// Подпись не проверяется: годится и чужой ключ, и alg=none.
func TestDecode_SignatureIgnored(t *testing.T) {
	t.Parallel()

	mc := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}

	none := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, mc)
	c, err := Decode(none)
	require.NoError(t, err)
	require.Equal(t, "u1", c.Subject)

	// Незнакомый alg в заголовке.
	const unknownAlg = "eyJhbGciOiJYWVoiLCJ0eXAiOiJKV1QifQ.eyJzdWIiOiJ1MiIsImV4cCI6NDEwMjQ0NDgwMH0.c2ln"
	c, err = Decode(unknownAlg)
	require.NoError(t, err)
	require.Equal(t, "u2", c.Subject)
}

func TestDecode_UnknownRoleIsStandard(t *testing.T) {
	t.Parallel()

	tok := sign(t, jwt.SigningMethodHS256, []byte("k"), jwt.MapClaims{"sub": "u1", "role": "OPS", "exp": 1})
	c, err := Decode(tok)
	require.NoError(t, err)
	require.Equal(t, Role("OPS"), c.Role)
	require.False(t, c.IsAdmin())
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", ErrDecode},
		{"garbage", "not-a-jwt", ErrDecode},
		{"bad_base64", "a.b.c", ErrDecode},
		{"sub_wrong_type", sign(t, jwt.SigningMethodHS256, []byte("k"), jwt.MapClaims{"sub": 42}), ErrClaimsInvalid},
		{"iat_wrong_type", sign(t, jwt.SigningMethodHS256, []byte("k"), jwt.MapClaims{"sub": "u", "iat": "x"}), ErrClaimsInvalid},
		{"nbf_wrong_type", sign(t, jwt.SigningMethodHS256, []byte("k"), jwt.MapClaims{"sub": "u", "nbf": true}), ErrClaimsInvalid},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.token)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestClaims_Validate(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	valid := Claims{Subject: "u1", ExpiresAt: now.Add(time.Minute), fields: 2}
	require.NoError(t, valid.Validate(now))

	// Истёкший токен структурно валиден: свежесть решает шлюз.
	expired := valid
	expired.ExpiresAt = now.Add(-time.Hour)
	require.NoError(t, expired.Validate(now))

	tcs := []struct {
		name string
		mut  func(*Claims)
	}{
		{"no_fields", func(c *Claims) { *c = Claims{} }},
		{"no_subject", func(c *Claims) { c.Subject = "" }},
		{"no_expiry", func(c *Claims) { c.ExpiresAt = time.Time{} }},
		{"nbf_future", func(c *Claims) { c.NotBefore = now.Add(time.Second) }},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mut(&c)
			require.ErrorIs(t, c.Validate(now), ErrClaimsInvalid)
		})
	}
}

func TestCountPopulated(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, countPopulated(jwt.MapClaims{}))
	require.Equal(t, 0, countPopulated(jwt.MapClaims{"sub": "", "name": nil}))
	require.Equal(t, 2, countPopulated(jwt.MapClaims{"sub": "u", "disabled": false}))
}
