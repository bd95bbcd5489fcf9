package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signedToken(t, jwt.MapClaims{"sub": "7", "exp": exp.Unix()})

	got, ok := TokenExpiry(tok)
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
	assert.False(t, TokenExpired(tok, time.Now()))
	assert.True(t, TokenExpired(tok, exp.Add(time.Second)))
}

func TestTokenExpiry_NotJWT(t *testing.T) {
	_, ok := TokenExpiry("opaque-session-token")
	assert.False(t, ok)
	assert.False(t, TokenExpired("opaque-session-token", time.Now()))

	_, ok = TokenExpiry("")
	assert.False(t, ok)
}

func TestTokenExpiry_NoExpClaim(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"sub": "7"})
	_, ok := TokenExpiry(tok)
	assert.False(t, ok)
}
