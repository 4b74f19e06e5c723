// Package auth implements session tokens and the HTTP gateway checks
// (CORS, IP whitelist, rate limiting) applied before routing.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"relay/pkg/errs"
)

// Claims is the session token payload.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

var (
	sessionSecret []byte
	sessionTTL    = 30 * 24 * time.Hour
)

// Configure installs the signing secret and token lifetime. Must be
// called before issuing or parsing sessions.
func Configure(secret string, ttl time.Duration) {
	sessionSecret = []byte(secret)
	if ttl > 0 {
		sessionTTL = ttl
	}
}

// IssueSession mints a signed session token for a user.
func IssueSession(userID string) (string, error) {
	if len(sessionSecret) == 0 {
		return "", errs.E(errs.Internal, "session secret not configured")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(sessionSecret)
}

// ParseSession validates a session token and returns the user id.
func ParseSession(token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return sessionSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", errs.E(errs.Unauthenticated, "invalid or expired session")
	}
	if claims.UserID == "" {
		return "", errs.E(errs.Unauthenticated, "invalid or expired session")
	}
	return claims.UserID, nil
}
