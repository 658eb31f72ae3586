package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyAccessToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"token_use": "access",
		"sub":       "user-1",
		"username":  "alice",
	})

	ident, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", ident.Subject)
	assert.Equal(t, "alice", ident.Username)
	assert.Equal(t, "alice", ident.Email) // falls back to username
}

func TestVerifyIDToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"token_use":        "id",
		"sub":              "user-2",
		"cognito:username": "alice",
		"email":            "alice@example.com",
	})

	ident, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", ident.Username)
	assert.Equal(t, "alice@example.com", ident.Email)
}

func TestVerifyServiceToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "user-3",
		"email": "carol@example.com",
	})

	ident, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", ident.Email)
	assert.Equal(t, "carol@example.com", ident.Username)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, "other-secret", jwt.MapClaims{"email": "alice@example.com"})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"email": "alice@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsNoUsableClaims(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "user-4"})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewVerifier(testSecret)
	_, err := v.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
