package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Claims represents the JWT claims issued by the portal backend
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Parse reads claims from an access token without verifying the signature.
// The client never holds the signing secret; claims are used for display and
// role gating only, the backend re-validates the token on every request.
func Parse(tokenString string) (*Claims, error) {
	parser := jwt.NewParser()

	parsed, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
