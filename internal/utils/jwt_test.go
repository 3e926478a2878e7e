// internal/utils/jwt_test.go
package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
)

func testTokenManager() *TokenManager {
	return NewTokenManager(config.JWTConfig{
		SecretKey:       "unit-test-secret",
		Issuer:          "gvoiceus-test",
		AccessTokenTTL:  1,
		RefreshTokenTTL: 24,
		ConfirmTokenTTL: 24,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testTokenManager()
	userID := uuid.New()

	token, err := m.GenerateAccessToken(userID, "buyer", "customer")
	require.NoError(t, err)

	claims, err := m.Parse(token, TokenPurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "buyer", claims.Username)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "gvoiceus-test", claims.Issuer)
}

func TestTokenPurposeIsEnforced(t *testing.T) {
	m := testTokenManager()
	userID := uuid.New()

	access, err := m.GenerateAccessToken(userID, "buyer", "customer")
	require.NoError(t, err)
	refresh, err := m.GenerateRefreshToken(userID)
	require.NoError(t, err)
	confirm, err := m.GenerateEmailConfirmToken(userID, "buyer@example.com")
	require.NoError(t, err)

	// Each token only works for its own purpose.
	_, err = m.Parse(access, TokenPurposeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Parse(refresh, TokenPurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Parse(confirm, TokenPurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := m.Parse(confirm, TokenPurposeEmailConfirm)
	require.NoError(t, err)
	assert.Equal(t, EmailChecksum("buyer@example.com"), claims.EmailChecksum)
}

func TestTokenRejectsWrongKey(t *testing.T) {
	m := testTokenManager()
	other := NewTokenManager(config.JWTConfig{SecretKey: "different-secret", AccessTokenTTL: 1})

	token, err := m.GenerateAccessToken(uuid.New(), "buyer", "customer")
	require.NoError(t, err)

	_, err = other.Parse(token, TokenPurposeAccess)
	assert.Error(t, err)
}
