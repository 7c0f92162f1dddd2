// Package token issues and verifies the credentials handed out by the auth
// flow: HMAC-signed access/refresh tokens and opaque single-purpose tokens
// kept in redis.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token fails signature or shape checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Claims carries the identity payload embedded in signed tokens. Refresh
// tokens carry the subject only; access tokens additionally carry the profile
// fields clients need without a user lookup.
type Claims struct {
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	TokenType    string `json:"token_type"`
	jwt.RegisteredClaims
}

// AccessPayload is the subset of user fields encoded into access tokens.
type AccessPayload struct {
	UserID       uuid.UUID
	Username     string
	Email        string
	ProfileImage string
}

// Manager signs and verifies JWTs with a shared HMAC secret.
type Manager struct {
	secret []byte
	issuer string
}

// NewManager constructs a Manager. The secret is read once at startup and
// passed in explicitly so the package stays free of environment coupling.
func NewManager(secret, issuer string) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer}
}

// GenerateAccessToken signs an access token expiring after ttl.
func (m *Manager) GenerateAccessToken(payload AccessPayload, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username:     payload.Username,
		Email:        payload.Email,
		ProfileImage: payload.ProfileImage,
		TokenType:    typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   payload.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// GenerateRefreshToken signs a refresh token carrying the user id only.
func (m *Manager) GenerateRefreshToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateAccessToken verifies signature, expiry and token type.
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != typeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefreshToken verifies signature, expiry and token type.
func (m *Manager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := m.validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != typeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserID parses the token subject back into a uuid.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
