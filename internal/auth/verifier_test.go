package auth

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	token := signToken(t, jwtlib.MapClaims{
		"sub":     "auth0|abc",
		"name":    "Alice",
		"email":   "alice@example.com",
		"picture": "https://cdn.example.com/a.png",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	ident, err := NewVerifier(testSecret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc", ident.Subject)
	assert.Equal(t, "Alice", ident.Name)
	assert.Equal(t, "alice@example.com", ident.Email)
	assert.Equal(t, "https://cdn.example.com/a.png", ident.AvatarURL)
}

func TestVerifyExpiredToken(t *testing.T) {
	token := signToken(t, jwtlib.MapClaims{
		"sub": "auth0|abc",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := NewVerifier(testSecret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	token := signToken(t, jwtlib.MapClaims{"sub": "auth0|abc"})

	_, err := NewVerifier([]byte("other-secret")).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMissingSubject(t *testing.T) {
	token := signToken(t, jwtlib.MapClaims{"name": "nobody"})

	_, err := NewVerifier(testSecret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
