package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token fails signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the registered claim set plus the authenticated user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenManager mints and verifies HS256 bearer tokens.
type TokenManager struct {
	secret   []byte
	validity time.Duration
}

// NewTokenManager creates a token manager with the given signing secret and
// token validity duration.
func NewTokenManager(secret string, validity time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		validity: validity,
	}
}

// GenerateToken mints a signed token for the given user id.
func (m *TokenManager) GenerateToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.validity)),
		},
		UserID: userID,
	})

	return token.SignedString(m.secret)
}

// VerifyToken validates a token string and returns the user id it asserts.
func (m *TokenManager) VerifyToken(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
