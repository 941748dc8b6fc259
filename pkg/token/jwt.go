// Package token issues and verifies access tokens and mints opaque refresh tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTManager signs and verifies HS256 access tokens.
type JWTManager struct {
	secretKey       []byte
	accessTokenDur  time.Duration
	refreshTokenDur time.Duration
}

// CustomClaims is the payload carried by access tokens.
type CustomClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTManager creates a manager. Non-positive durations fall back to 1h and 7 days.
func NewJWTManager(secret string, accessTokenExpireMinutes, refreshTokenExpireDays int) *JWTManager {
	if accessTokenExpireMinutes <= 0 {
		accessTokenExpireMinutes = 60
	}
	if refreshTokenExpireDays <= 0 {
		refreshTokenExpireDays = 7
	}
	return &JWTManager{
		secretKey:       []byte(secret),
		accessTokenDur:  time.Duration(accessTokenExpireMinutes) * time.Minute,
		refreshTokenDur: time.Duration(refreshTokenExpireDays) * 24 * time.Hour,
	}
}

// GenerateToken signs a new access token for the given user.
func (m *JWTManager) GenerateToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// GenerateRefreshToken returns an opaque refresh token and its expiry.
// Refresh tokens are looked up server side, so they carry no claims.
func (m *JWTManager) GenerateRefreshToken() (string, time.Time) {
	return GenerateRandomString(32), time.Now().Add(m.refreshTokenDur)
}

// AccessTokenTTL reports the lifetime of access tokens.
func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.accessTokenDur
}

// VerifyToken parses tokenString and returns its claims when the signature and
// time-based claims are valid.
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateRandomString returns a hex string built from length random bytes.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
