package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator verifies bearer tokens issued by the auth provider.
type TokenValidator struct {
	issuer  string
	keyfunc jwt.Keyfunc
	methods []string
}

// NewTokenValidator fetches the provider's JWKS from
// baseURL/.well-known/jwks.json and keeps it refreshed until ctx ends.
func NewTokenValidator(ctx context.Context, baseURL string) (*TokenValidator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("AUTH_BASE_URL is not set")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{strings.TrimRight(baseURL, "/") + "/.well-known/jwks.json"})
	if err != nil {
		return nil, err
	}
	return NewTokenValidatorWithKeyfunc(u.Scheme+"://"+u.Host, jwks.Keyfunc), nil
}

// NewTokenValidatorWithKeyfunc builds a validator around an existing key
// lookup. Tokens must be EdDSA signed and carry the given issuer.
func NewTokenValidatorWithKeyfunc(issuer string, kf jwt.Keyfunc) *TokenValidator {
	return &TokenValidator{issuer: issuer, keyfunc: kf, methods: []string{"EdDSA"}}
}

// Validate parses and verifies tokenString and returns its claims.
func (v *TokenValidator) Validate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, v.keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods(v.methods))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// RoleFromClaims returns the "role" claim, or "" when absent.
func RoleFromClaims(claims jwt.MapClaims) string {
	role, _ := claims["role"].(string)
	return strings.TrimSpace(role)
}

// SubjectFromClaims returns the user id from claims ("sub" or "id").
func SubjectFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
