// internal/auth/auth_test.go
package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only-secret"))
	require.NoError(t, err)
	return tok
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	c, err := InspectToken(signed(t, jwt.MapClaims{"sub": "ana", "exp": exp.Unix()}))
	require.NoError(t, err)
	assert.Equal(t, "ana", c.Subject)
	assert.True(t, c.ExpiresAt.Equal(exp))
	assert.False(t, c.Expired(time.Now()))
	assert.True(t, c.Expired(exp))
	assert.True(t, c.Expired(exp.Add(time.Minute)))
}

func TestInspectTokenWithoutExpiry(t *testing.T) {
	c, err := InspectToken(signed(t, jwt.MapClaims{"sub": "ana"}))
	require.NoError(t, err)
	assert.True(t, c.ExpiresAt.IsZero())
	assert.False(t, c.Expired(time.Now().Add(1000*time.Hour)))
}

func TestInspectTokenRejectsGarbage(t *testing.T) {
	_, err := InspectToken("not-a-jwt")
	assert.Error(t, err)
	_, err = InspectToken(signed(t, jwt.MapClaims{"sub": "ana", "exp": "tomorrow"}))
	assert.Error(t, err)
}

func TestSealRoundTrip(t *testing.T) {
	s, err := NewSealer("correct horse", testParams)
	require.NoError(t, err)

	sealed, err := s.Seal("eyJhbGciOi.payload.sig")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.True(t, strings.HasPrefix(sealed, "$argon2id$v=19$m=8192,t=1,p=1$"))
	assert.NotContains(t, sealed, "payload")

	again, err := s.Seal("eyJhbGciOi.payload.sig")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "salt and nonce are fresh per value")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi.payload.sig", plain)
}

func TestOpenWithWrongPassphrase(t *testing.T) {
	s, err := NewSealer("correct horse", testParams)
	require.NoError(t, err)
	sealed, err := s.Seal("secret")
	require.NoError(t, err)

	other, err := NewSealer("battery staple", testParams)
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrWrongKey)
}

func TestOpenRejectsMalformed(t *testing.T) {
	s, err := NewSealer("k", testParams)
	require.NoError(t, err)

	for _, in := range []string{
		"",
		"plain-token",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$Y3Q",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$Y3Q",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0$c2hvcnQ",
	} {
		_, err := s.Open(in)
		assert.ErrorIs(t, err, ErrInvalidSealed, in)
	}
	_, err = s.Open("$argon2id$v=16$m=8192,t=1,p=1$c2FsdA$Y3Q")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestNewSealerValidates(t *testing.T) {
	_, err := NewSealer("", testParams)
	assert.Error(t, err)
	_, err = NewSealer("k", Params{})
	assert.Error(t, err)
	_, err = NewSealer("k", DefaultParams)
	assert.NoError(t, err)
}
