package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// JWTClaims represents the staff token claims
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator validates staff JWT tokens and resolves the actor for
// scheduling calls.
type TokenValidator struct {
	jwtSecret []byte
	issuer    string
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(secret, issuer string) *TokenValidator {
	return &TokenValidator{
		jwtSecret: []byte(secret),
		issuer:    issuer,
	}
}

// ValidateJWT validates a JWT token and returns user claims
func (tv *TokenValidator) ValidateJWT(tokenString string) (*types.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tv.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}

	if tv.issuer != "" && claims.Issuer != tv.issuer {
		return nil, fmt.Errorf("unexpected token issuer: %s", claims.Issuer)
	}

	return &types.UserClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     types.UserRole(claims.Role),
	}, nil
}

// ActorFromHeader resolves the acting staff member from an Authorization
// header. A missing or malformed header is a hard failure: scheduling
// mutations never run without a resolved actor.
func (tv *TokenValidator) ActorFromHeader(authHeader string) (*types.AuthContext, error) {
	if authHeader == "" {
		return nil, types.NewAuthorizationError(types.ErrCodeUnauthorized, "authorization header is required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return nil, types.NewAuthorizationError(types.ErrCodeUnauthorized, "authorization header must use the Bearer scheme")
	}

	claims, err := tv.ValidateJWT(tokenString)
	if err != nil {
		return nil, types.NewAuthorizationError(types.ErrCodeUnauthorized, "invalid or expired token")
	}

	return &types.AuthContext{
		ActorID: claims.UserID,
		IsAdmin: claims.Role == types.RoleAdmin,
		Role:    claims.Role,
	}, nil
}
