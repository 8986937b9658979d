package auth

import (
	"context"
	"fmt"
)

// GetUsernameFromContext extracts the authenticated username from JWT
// claims in the context. Returns empty string if not authenticated.
// Use this when an empty username can be handled gracefully.
func GetUsernameFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Username()
}

// RequireUsernameFromContext extracts the authenticated username from
// context and returns an error if not found. Use this when the operation
// is identity-scoped and must not proceed anonymously.
func RequireUsernameFromContext(ctx context.Context) (string, error) {
	username := GetUsernameFromContext(ctx)
	if username == "" {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
