package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = Identity{
	UserID:        "user-123",
	Email:         "ana@maestro.edu.co",
	FullName:      "Ana Torres",
	Role:          "TEACHER",
	RoleID:        1,
	InstitutionID: 7,
}

func TestGenerateToken_WithJTI(t *testing.T) {
	token, jti, err := GenerateToken("test-secret", testIdentity, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, jti)

	claims, err := ParseToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, testIdentity, claims.Identity())
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{TokenAudience}, claims.Audience)
}

func TestGenerateToken_UniqueJTIs(t *testing.T) {
	_, jti1, err1 := GenerateToken("s", testIdentity, time.Hour)
	_, jti2, err2 := GenerateToken("s", testIdentity, time.Hour)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.NotEqual(t, jti1, jti2)
}

func TestParseToken(t *testing.T) {
	secret := "test-secret"

	t.Run("invalid signature", func(t *testing.T) {
		token, _, err := GenerateToken("wrong-secret", testIdentity, time.Hour)
		require.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("expired token", func(t *testing.T) {
		token, _, err := GenerateToken(secret, testIdentity, -time.Hour)
		require.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := Claims{
			Sub: "user-123",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    TokenIssuer,
				Audience:  jwt.ClaimStrings{"someone-else"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = ParseToken(secret, token)
		assert.Error(t, err)
	})

	t.Run("malformed token", func(t *testing.T) {
		claims, err := ParseToken(secret, "not.a.valid.token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}
