package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims issued to RentX users.
type Claims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	OwnerID string `json:"owner_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager validates access tokens. GenerateAccessToken exists for tests and
// internal tooling; login flows live in the identity service.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewJWTManager creates a JWTManager for HS256 tokens.
func NewJWTManager(secret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// AccessExpiry is the lifetime of issued access tokens.
func (m *JWTManager) AccessExpiry() time.Duration {
	return m.accessExpiry
}

// GenerateAccessToken signs a token for the given principal.
func (m *JWTManager) GenerateAccessToken(p Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: p.UserID.String(),
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
		},
	}
	if p.OwnerProfileID != nil {
		claims.OwnerID = p.OwnerProfileID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a signed token and returns the principal it carries.
func (m *JWTManager) ValidateToken(tokenString string) (*Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errors.New("invalid token: malformed user_id claim")
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	p := &Principal{UserID: userID, Role: role}
	if claims.OwnerID != "" {
		ownerID, err := uuid.Parse(claims.OwnerID)
		if err != nil {
			return nil, errors.New("invalid token: malformed owner_id claim")
		}
		p.OwnerProfileID = &ownerID
	}
	return p, nil
}
