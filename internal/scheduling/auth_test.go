package scheduling

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maralydev/revabrain-sub000/pkg/types"
)

const testSecret = "test-secret-key"

func signTestToken(t *testing.T, claims *JWTClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func staffClaims(userID, role string, expiresIn time.Duration) *JWTClaims {
	now := time.Now()
	return &JWTClaims{
		UserID:   userID,
		Username: "e.janssens",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "revabrain-practice",
			Subject:   userID,
		},
	}
}

func TestValidateJWT_RoundTrip(t *testing.T) {
	validator := NewTokenValidator(testSecret, "revabrain-practice")
	tokenString := signTestToken(t, staffClaims("provider-1", "provider", time.Hour))

	claims, err := validator.ValidateJWT(tokenString)

	require.NoError(t, err)
	assert.Equal(t, "provider-1", claims.UserID)
	assert.Equal(t, types.RoleProvider, claims.Role)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	validator := NewTokenValidator("another-secret", "revabrain-practice")
	tokenString := signTestToken(t, staffClaims("provider-1", "provider", time.Hour))

	_, err := validator.ValidateJWT(tokenString)

	assert.Error(t, err)
}

func TestValidateJWT_Expired(t *testing.T) {
	validator := NewTokenValidator(testSecret, "revabrain-practice")
	tokenString := signTestToken(t, staffClaims("provider-1", "provider", -time.Hour))

	_, err := validator.ValidateJWT(tokenString)

	assert.Error(t, err)
}

func TestValidateJWT_WrongIssuer(t *testing.T) {
	validator := NewTokenValidator(testSecret, "revabrain-practice")
	claims := staffClaims("provider-1", "provider", time.Hour)
	claims.Issuer = "someone-else"

	_, err := validator.ValidateJWT(signTestToken(t, claims))

	assert.Error(t, err)
}

func TestActorFromHeader_ResolvesActor(t *testing.T) {
	validator := NewTokenValidator(testSecret, "revabrain-practice")
	tokenString := signTestToken(t, staffClaims("provider-1", "provider", time.Hour))

	actor, err := validator.ActorFromHeader("Bearer " + tokenString)

	require.NoError(t, err)
	assert.Equal(t, "provider-1", actor.ActorID)
	assert.False(t, actor.IsAdmin)
	assert.Equal(t, types.RoleProvider, actor.Role)
}

func TestActorFromHeader_AdminFlag(t *testing.T) {
	validator := NewTokenValidator(testSecret, "revabrain-practice")
	tokenString := signTestToken(t, staffClaims("admin-1", "admin", time.Hour))

	actor, err := validator.ActorFromHeader("Bearer " + tokenString)

	require.NoError(t, err)
	assert.True(t, actor.IsAdmin)
}

func TestActorFromHeader_MissingHeader(t *testing.T) {
	validator := NewTokenValidator(testSecret, "revabrain-practice")

	_, err := validator.ActorFromHeader("")

	require.Error(t, err)
	var revaErr *types.RevaError
	require.ErrorAs(t, err, &revaErr)
	assert.Equal(t, types.ErrorTypeAuthorization, revaErr.Type)
}

func TestActorFromHeader_WrongScheme(t *testing.T) {
	validator := NewTokenValidator(testSecret, "revabrain-practice")

	_, err := validator.ActorFromHeader("Basic dXNlcjpwYXNz")

	assert.Error(t, err)
}
