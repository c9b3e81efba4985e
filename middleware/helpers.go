package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

const (
	jwtClaimSubject = "sub"
	jwtClaimRole    = "role"
)

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(claimsContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errors.New("token claims not found in context")
	}
	return claims, nil
}

func stringClaim(ctx context.Context, name string) (string, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	raw, ok := claims[name]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", name)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", name, raw)
	}
	return value, nil
}

// GetSubjectFromContext returns who signed in, for audit logging.
func GetSubjectFromContext(ctx context.Context) (string, error) {
	return stringClaim(ctx, jwtClaimSubject)
}

func GetRoleFromContext(ctx context.Context) (string, error) {
	return stringClaim(ctx, jwtClaimRole)
}
