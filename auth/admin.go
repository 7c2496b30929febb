// Package auth decides who may trigger draw imports.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"lottery-insight-server/apperrors"
)

// AdminRole is the role claim a bearer token needs to import draws.
const AdminRole = "admin"

// HeaderAdminKey carries the shared admin key.
const HeaderAdminKey = "X-Admin-Key"

// Admin authorizes import requests by shared key or by an admin JWT.
// Either mechanism may be absent; with both absent imports are disabled.
type Admin struct {
	key    string
	tokens *TokenValidator
}

// NewAdmin returns an authorizer. tokens may be nil.
func NewAdmin(key string, tokens *TokenValidator) *Admin {
	return &Admin{key: key, tokens: tokens}
}

// Enabled reports whether any admin mechanism is configured.
func (a *Admin) Enabled() bool {
	return a != nil && (a.key != "" || a.tokens != nil)
}

// Authorize returns nil when r carries a matching X-Admin-Key header or a
// valid bearer token with the admin role.
func (a *Admin) Authorize(r *http.Request) error {
	if !a.Enabled() {
		return apperrors.Validation("admin_import_key_not_configured")
	}
	if a.key != "" {
		if got := r.Header.Get(HeaderAdminKey); got != "" &&
			subtle.ConstantTimeCompare([]byte(got), []byte(a.key)) == 1 {
			return nil
		}
	}
	if a.tokens != nil {
		if raw, ok := bearer(r); ok {
			claims, err := a.tokens.Validate(raw)
			if err != nil {
				slog.Debug("admin token rejected", "tag", "auth", "err", err)
				return apperrors.ErrUnauthorized
			}
			if RoleFromClaims(claims) == AdminRole {
				slog.Info("admin token accepted", "tag", "auth", "sub", SubjectFromClaims(claims))
				return nil
			}
		}
	}
	return apperrors.ErrUnauthorized
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
