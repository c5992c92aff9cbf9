package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestiq/harvestiq/internal/auth"
)

const testKey = "test-secret-key-for-testing-only"

func newJWT(key, issuer, audience string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SigningKey: key, Issuer: issuer, Audience: audience})
}

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := newJWT(testKey, "harvestiq", "harvestiq-dashboard")

	token, expiresAt, err := svc.GenerateAccessToken("usr_farmer1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr_farmer1", claims.UserID)
	assert.Equal(t, "usr_farmer1", claims.Subject)
	assert.Equal(t, "harvestiq", claims.Issuer)

	userID, err := svc.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "usr_farmer1", userID)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := newJWT(testKey, "harvestiq", "")

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	token, _, err := newJWT("key-one", "harvestiq", "").GenerateAccessToken("usr_1")
	require.NoError(t, err)

	_, err = newJWT("key-two", "harvestiq", "").ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_WrongIssuer(t *testing.T) {
	token, _, err := newJWT(testKey, "issuer-one", "").GenerateAccessToken("usr_1")
	require.NoError(t, err)

	_, err = newJWT(testKey, "issuer-two", "").ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_WrongAudience(t *testing.T) {
	token, _, err := newJWT(testKey, "harvestiq", "audience-one").GenerateAccessToken("usr_1")
	require.NoError(t, err)

	_, err = newJWT(testKey, "harvestiq", "audience-two").ValidateAccessToken(token)
	assert.Error(t, err)
}

func sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testKey))
	require.NoError(t, err)
	return s
}

func TestJWTService_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	token := sign(t, jwt.RegisteredClaims{
		Issuer:    "harvestiq",
		Subject:   "usr_1",
		IssuedAt:  jwt.NewNumericDate(past),
		ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
	})

	_, err := newJWT(testKey, "harvestiq", "").ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_SubjectOnlyToken(t *testing.T) {
	token := sign(t, jwt.RegisteredClaims{
		Issuer:    "harvestiq",
		Subject:   "usr_from_idp",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	userID, err := newJWT(testKey, "harvestiq", "").UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "usr_from_idp", userID)
}

func TestJWTService_NoUser(t *testing.T) {
	token := sign(t, jwt.RegisteredClaims{
		Issuer:    "harvestiq",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err := newJWT(testKey, "harvestiq", "").ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrMissingUserID)
}

func TestJWTService_RequiresExpiry(t *testing.T) {
	token := sign(t, jwt.RegisteredClaims{Issuer: "harvestiq", Subject: "usr_1"})

	_, err := newJWT(testKey, "harvestiq", "").ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}
