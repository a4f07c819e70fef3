package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims holds the subset of access token claims the client inspects locally.
// Tokens are never validated on the client - signature verification is the
// server's job. Parsing is only used to read expiry and subject hints.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Parse extracts claims from a JWT access token without verifying its
// signature. Opaque (non-JWT) tokens return an error.
func Parse(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.New("[token.Parse] empty token")
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "[token.Parse] ParseUnverified")
	}

	claims := &Claims{}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// ExpiresWithin reports whether rawToken expires within skew of now.
// Opaque tokens and tokens without an exp claim report false, leaving the
// server's 401 response as the authority on expiry.
func ExpiresWithin(rawToken string, skew time.Duration, now time.Time) bool {
	claims, err := Parse(rawToken)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(skew).After(claims.ExpiresAt)
}
