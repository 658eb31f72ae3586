package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when no verifier variant accepts the token.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified caller. Email is the owner identity used by every
// video and history operation.
type Identity struct {
	Subject  string
	Username string
	Email    string
}

// variant is one accepted token shape. Variants are tried in order until one
// yields an identity; there is no error cascade between them.
type variant struct {
	name     string
	tokenUse string // expected token_use claim, "" = not enforced
	identity func(claims jwt.MapClaims) (Identity, bool)
}

// Verifier validates bearer tokens against an ordered list of accepted
// shapes: access-token claims, then ID-token claims, then plain email-bearing
// tokens issued by this service.
type Verifier struct {
	secret   []byte
	variants []variant
}

// NewVerifier creates a token verifier for HS256-signed tokens.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		variants: []variant{
			{name: "access", tokenUse: "access", identity: accessIdentity},
			{name: "id", tokenUse: "id", identity: idIdentity},
			{name: "bearer", identity: bearerIdentity},
		},
	}
}

// Verify parses and validates the token, then resolves the first variant that
// matches its claims. Returns a single discriminated Identity result.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	tokenUse, _ := claims["token_use"].(string)
	for _, va := range v.variants {
		if va.tokenUse != "" && va.tokenUse != tokenUse {
			continue
		}
		if ident, ok := va.identity(claims); ok {
			return ident, nil
		}
	}
	return Identity{}, ErrInvalidToken
}

// accessIdentity reads access-token claims: username required, email falls
// back to username when the claim is absent.
func accessIdentity(claims jwt.MapClaims) (Identity, bool) {
	username, _ := claims["username"].(string)
	if username == "" {
		return Identity{}, false
	}
	email, _ := claims["email"].(string)
	if email == "" {
		email = username
	}
	sub, _ := claims["sub"].(string)
	return Identity{Subject: sub, Username: username, Email: email}, true
}

// idIdentity reads ID-token claims: email required.
func idIdentity(claims jwt.MapClaims) (Identity, bool) {
	email, _ := claims["email"].(string)
	if email == "" {
		return Identity{}, false
	}
	username, _ := claims["cognito:username"].(string)
	if username == "" {
		username, _ = claims["username"].(string)
	}
	if username == "" {
		username = email
	}
	sub, _ := claims["sub"].(string)
	return Identity{Subject: sub, Username: username, Email: email}, true
}

// bearerIdentity reads plain service-issued tokens carrying an email claim.
func bearerIdentity(claims jwt.MapClaims) (Identity, bool) {
	email, _ := claims["email"].(string)
	if email == "" {
		return Identity{}, false
	}
	sub, _ := claims["sub"].(string)
	return Identity{Subject: sub, Username: email, Email: email}, true
}
