package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lottery-insight-server/apperrors"
)

const issuer = "https://auth.example.test"

func signer(t *testing.T) (*TokenValidator, func(claims jwt.MapClaims) string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	v := NewTokenValidatorWithKeyfunc(issuer, func(*jwt.Token) (any, error) { return pub, nil })
	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	return v, sign
}

func TestAdminNotConfigured(t *testing.T) {
	err := NewAdmin("", nil).Authorize(httptest.NewRequest("POST", "/v1/import", nil))
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apperrors.Message(err) != "admin_import_key_not_configured" {
		t.Errorf("unexpected message %q", apperrors.Message(err))
	}
}

func TestAdminKey(t *testing.T) {
	a := NewAdmin("s3cret", nil)
	tests := []struct {
		header string
		ok     bool
	}{
		{"s3cret", true},
		{"wrong", false},
		{"", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/v1/import", nil)
		if tt.header != "" {
			r.Header.Set(HeaderAdminKey, tt.header)
		}
		err := a.Authorize(r)
		if tt.ok && err != nil {
			t.Errorf("key %q: unexpected error %v", tt.header, err)
		}
		if !tt.ok && !errors.Is(err, apperrors.ErrUnauthorized) {
			t.Errorf("key %q: expected unauthorized, got %v", tt.header, err)
		}
	}
}

func TestAdminBearerToken(t *testing.T) {
	v, sign := signer(t)
	a := NewAdmin("", v)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		claims jwt.MapClaims
		ok     bool
	}{
		{"admin", jwt.MapClaims{"iss": issuer, "sub": "u1", "role": "admin", "exp": exp}, true},
		{"viewer", jwt.MapClaims{"iss": issuer, "sub": "u2", "role": "viewer", "exp": exp}, false},
		{"wrong issuer", jwt.MapClaims{"iss": "https://evil.test", "role": "admin", "exp": exp}, false},
		{"expired", jwt.MapClaims{"iss": issuer, "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/v1/import", nil)
			r.Header.Set("Authorization", "Bearer "+sign(tt.claims))
			err := a.Authorize(r)
			if tt.ok != (err == nil) {
				t.Errorf("ok=%v, got err %v", tt.ok, err)
			}
		})
	}
}

func TestClaimsHelpers(t *testing.T) {
	if got := SubjectFromClaims(jwt.MapClaims{"id": "abc"}); got != "abc" {
		t.Errorf("expected id fallback, got %q", got)
	}
	if got := RoleFromClaims(jwt.MapClaims{}); got != "" {
		t.Errorf("expected empty role, got %q", got)
	}
}
