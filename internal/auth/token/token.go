package token

import (
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	sgrstrings "sgr/pkg/platform/strings"
)

// Claims is the advisory view of an access token issued by the identity
// provider. Fields not listed here are ignored on decode.
type Claims struct {
	UserName    string           `json:"user_name,omitempty"`
	ClientID    string           `json:"client_id,omitempty"`
	Authorities []string         `json:"authorities"`
	Scope       jwt.ClaimStrings `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// ExpiresAtEpochSeconds returns the exp claim in seconds since the epoch.
func (c *Claims) ExpiresAtEpochSeconds() int64 {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Unix()
}

// ValidAt reports whether the token is unexpired at now, compared at
// millisecond precision: exp*1000 > now in milliseconds.
func (c *Claims) ValidAt(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Time.UnixMilli() > now.UnixMilli()
}

// HasAnyAuthority reports whether at least one of authorities was granted.
// An empty list is never satisfied.
func (c *Claims) HasAnyAuthority(authorities []string) bool {
	if c == nil {
		return false
	}
	for _, a := range authorities {
		if slices.Contains(c.Authorities, a) {
			return true
		}
	}
	return false
}

// Decoder turns an opaque bearer token into Claims without verifying the
// signature. The result only gates UI; the backend re-checks every request.
type Decoder struct {
	parser *jwt.Parser
}

func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser()}
}

// Decode returns the token's claims, or false when the token is empty,
// malformed, or carries no expiry. All failures collapse into the same
// outcome: an undecodable token behaves exactly like no token.
func (d *Decoder) Decode(raw string) (*Claims, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	claims := &Claims{}
	if _, _, err := d.parser.ParseUnverified(raw, claims); err != nil {
		return nil, false
	}
	if claims.ExpiresAt == nil {
		return nil, false
	}
	claims.Authorities = sgrstrings.DedupeAndTrim(claims.Authorities)
	return claims, true
}

var defaultDecoder = NewDecoder()

// Decode uses a shared Decoder.
func Decode(raw string) (*Claims, bool) {
	return defaultDecoder.Decode(raw)
}
