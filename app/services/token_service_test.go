package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-token-service"

func newTestTokenService(t *testing.T) TokenService {
	t.Helper()
	svc, err := NewTokenService(15*time.Minute, 24*time.Hour, "pricing-api-test", false, "", "", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name      string
		useRSA    bool
		secretKey string
		wantErr   bool
	}{
		{
			name:      "HMAC with secret",
			secretKey: testSecret,
		},
		{
			name:    "HMAC without secret fails",
			wantErr: true,
		},
		{
			name:    "RSA with garbage key fails",
			useRSA:  true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			privateKeyPEM := ""
			if tt.useRSA {
				privateKeyPEM = "not a pem key"
			}
			svc, err := NewTokenService(0, 0, "pricing-api-test", tt.useRSA, privateKeyPEM, "", tt.secretKey)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	svc := newTestTokenService(t)

	pair, err := svc.GenerateTokens(42)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)

	accessClaims, err := svc.ValidateToken(pair.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), accessClaims.TenantID)
	assert.Equal(t, AccessToken, accessClaims.TokenType)
	assert.Equal(t, "pricing-api-test", accessClaims.Issuer)
	assert.NotEmpty(t, accessClaims.ID)

	refreshClaims, err := svc.ValidateToken(pair.RefreshToken, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), refreshClaims.TenantID)
	assert.Equal(t, RefreshToken, refreshClaims.TokenType)
	assert.NotEqual(t, accessClaims.ID, refreshClaims.ID)
}

func TestValidateTokenRejectsWrongType(t *testing.T) {
	svc := newTestTokenService(t)

	pair, err := svc.GenerateTokens(7)
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ValidateToken(pair.RefreshToken, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t)

	_, err := svc.ValidateToken("not.a.token", AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.ValidateToken("", AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestTokenService(t)
	other, err := NewTokenService(15*time.Minute, 24*time.Hour, "pricing-api-test", false, "", "", "a-different-secret")
	require.NoError(t, err)

	pair, err := other.GenerateTokens(7)
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken, AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, err := NewTokenService(-time.Hour, 24*time.Hour, "pricing-api-test", false, "", "", testSecret)
	require.NoError(t, err)

	// Negative TTLs fall back to defaults, so build the short-lived service
	// directly.
	impl := svc.(*TokenServiceImpl)
	impl.accessTTL = -time.Minute

	pair, err := svc.GenerateTokens(7)
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken, AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRevokeToken(t *testing.T) {
	svc := newTestTokenService(t)

	pair, err := svc.GenerateTokens(7)
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.RefreshToken, RefreshToken)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(pair.RefreshToken))

	_, err = svc.ValidateToken(pair.RefreshToken, RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The access token from the same pair is unaffected.
	_, err = svc.ValidateToken(pair.AccessToken, AccessToken)
	assert.NoError(t, err)
}

func TestRevokeTokenRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t)
	assert.ErrorIs(t, svc.RevokeToken("not.a.token"), ErrTokenInvalid)
}
