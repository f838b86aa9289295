package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenIssuer   = "auth-system"
	TokenAudience = "edu-platform"
)

// Identity is the user data embedded in an access token.
type Identity struct {
	UserID        string
	Email         string
	FullName      string
	Role          string
	RoleID        int
	InstitutionID int64
}

type Claims struct {
	Sub           string `json:"sub"`  // user id
	Role          string `json:"role"` // TEACHER/STUDENT
	RoleID        int    `json:"role_id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	InstitutionID int64  `json:"institution_id"`
	jwt.RegisteredClaims
}

func generateJTI() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateToken signs an HS256 token and returns it with its JTI.
func GenerateToken(secret string, id Identity, ttl time.Duration) (string, string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	c := Claims{
		Sub:           id.UserID,
		Role:          id.Role,
		RoleID:        id.RoleID,
		Email:         id.Email,
		FullName:      id.FullName,
		InstitutionID: id.InstitutionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tokenStr, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return tokenStr, jti, nil
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := t.Claims.(*Claims); ok && t.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// Identity returns the user data carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:        c.Sub,
		Email:         c.Email,
		FullName:      c.FullName,
		Role:          c.Role,
		RoleID:        c.RoleID,
		InstitutionID: c.InstitutionID,
	}
}
