// internal/utils/jwt.go
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
)

const (
	TokenPurposeAccess       = "access"
	TokenPurposeRefresh      = "refresh"
	TokenPurposeEmailConfirm = "email_confirm"
)

var ErrInvalidToken = errors.New("invalid token")

type JWTClaims struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
	Purpose       string `json:"purpose"`
	EmailChecksum string `json:"email_checksum,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates every token the API hands out. All
// keys and lifetimes come from configuration, nothing is package state.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	confirmTTL time.Duration
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{
		secret:     []byte(cfg.SecretKey),
		issuer:     cfg.Issuer,
		accessTTL:  time.Duration(cfg.AccessTokenTTL) * time.Hour,
		refreshTTL: time.Duration(cfg.RefreshTokenTTL) * time.Hour,
		confirmTTL: time.Duration(cfg.ConfirmTokenTTL) * time.Hour,
	}
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *TokenManager) GenerateAccessToken(userID uuid.UUID, username, role string) (string, error) {
	claims := JWTClaims{
		UserID:           userID.String(),
		Username:         username,
		Role:             role,
		Purpose:          TokenPurposeAccess,
		RegisteredClaims: m.registeredClaims(userID, m.accessTTL),
	}
	return m.sign(claims)
}

func (m *TokenManager) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	claims := JWTClaims{
		UserID:           userID.String(),
		Purpose:          TokenPurposeRefresh,
		RegisteredClaims: m.registeredClaims(userID, m.refreshTTL),
	}
	return m.sign(claims)
}

// GenerateEmailConfirmToken binds the token to the current address via a
// checksum, so it stops working if the user's email is changed later.
func (m *TokenManager) GenerateEmailConfirmToken(userID uuid.UUID, email string) (string, error) {
	claims := JWTClaims{
		UserID:           userID.String(),
		Purpose:          TokenPurposeEmailConfirm,
		EmailChecksum:    EmailChecksum(email),
		RegisteredClaims: m.registeredClaims(userID, m.confirmTTL),
	}
	return m.sign(claims)
}

// Parse validates the signature and expiry and requires the token to
// carry the expected purpose, so an access token can never confirm an
// email and a confirmation link can never authenticate a request.
func (m *TokenManager) Parse(tokenString, purpose string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) registeredClaims(userID uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    m.issuer,
		Subject:   userID.String(),
	}
}

func (m *TokenManager) sign(claims JWTClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
