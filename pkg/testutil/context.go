package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"sgr/internal/auth/models"
)

// SignToken issues an HS256 access token shaped like the identity
// provider's, expiring at exp and granting authorities.
func SignToken(t *testing.T, exp time.Time, authorities ...string) string {
	t.Helper()
	if authorities == nil {
		authorities = []string{}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":         exp.Unix(),
		"user_name":   "usuario.teste",
		"authorities": authorities,
		"client_id":   "sgr",
		"scope":       []string{"read", "write"},
		"jti":         exp.Format(time.RFC3339Nano),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err, "failed to sign token")
	return signed
}

// LoginResponse wraps SignToken in the token endpoint payload.
func LoginResponse(t *testing.T, exp time.Time, authorities ...string) models.LoginResponse {
	t.Helper()
	return models.LoginResponse{
		AccessToken: SignToken(t, exp, authorities...),
		TokenType:   "bearer",
		ExpiresIn:   int(time.Until(exp).Seconds()),
		Scope:       "read write",
	}
}

// WithSessionCookie attaches the browser session cookie to req.
func WithSessionCookie(req *http.Request, name, sessionID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: name, Value: sessionID})
	return req
}
