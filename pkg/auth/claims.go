// Package auth provides JWT-based authentication for ami-engine.
// It validates bearer tokens issued by the identity provider using
// JWKS endpoints, and exposes the authenticated username to handlers.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing JWT claims.
const ClaimsKey contextKey = "claims"

// Claims represents the JWT claims structure issued by the identity
// provider. RegisteredClaims carries the standard fields (sub, iss, exp);
// PreferredUsername carries the dashboard login name when the provider
// sets it, otherwise the subject is used as the username.
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
}

// Username returns the account name this token authenticates. The
// preferred_username claim wins over the subject.
func (c *Claims) Username() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Subject
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}
