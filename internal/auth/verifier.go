package auth

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Identity is the verified assertion the identity provider issues: a stable
// subject id plus profile claims. The service trusts it after signature
// verification and otherwise treats users by their local profile row.
type Identity struct {
	Subject   string
	Name      string
	Email     string
	AvatarURL string
}

var ErrInvalidToken = errors.New("invalid token")

// Verifier validates HMAC-signed identity assertions.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the shared signing secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify parses and validates the token and extracts the identity claims.
// Only the HMAC family is accepted.
func (v *Verifier) Verify(token string) (Identity, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		Subject:   subject,
		Name:      stringClaim(claims, "name"),
		Email:     stringClaim(claims, "email"),
		AvatarURL: stringClaim(claims, "picture"),
	}, nil
}

func stringClaim(claims jwtlib.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}
