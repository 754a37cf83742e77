// Package services provides application services for token management
package services

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fetchwork/pricing-api/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token service errors
var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalid     = errors.New("token is invalid")
	ErrTokenRevoked     = errors.New("token has been revoked")
	ErrInvalidTokenType = errors.New("invalid token type")
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// TokenClaims are the claims carried by every issued token.
type TokenClaims struct {
	TenantID  uint      `json:"tenant_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is one issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenService issues and validates tenant JWTs.
type TokenService interface {
	GenerateTokens(tenantID uint) (*TokenPair, error)
	ValidateToken(tokenString string, expectedType TokenType) (*TokenClaims, error)
	RevokeToken(tokenString string) error
}

// TokenServiceImpl signs with HS256 by default, or RS256 when RSA keys are
// configured.
type TokenServiceImpl struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	secret     []byte
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey

	mu            sync.RWMutex
	revokedTokens map[string]time.Time
}

// NewTokenService creates a token service from configuration values. When
// useRSAKeys is set the PEM-encoded key pair is parsed and RS256 is used;
// otherwise tokens are signed with the HMAC secret.
func NewTokenService(accessTTL, refreshTTL time.Duration, issuer string, useRSAKeys bool, privateKeyPEM, publicKeyPEM, secretKey string) (TokenService, error) {
	if accessTTL <= 0 {
		accessTTL = utils.AccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = utils.RefreshTokenTTL
	}

	svc := &TokenServiceImpl{
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
		revokedTokens: make(map[string]time.Time),
	}

	if useRSAKeys {
		privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
		svc.privateKey = privateKey
		svc.publicKey = &privateKey.PublicKey

		if publicKeyPEM != "" {
			publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
			if err != nil {
				return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
			}
			svc.publicKey = publicKey
		}
		return svc, nil
	}

	if secretKey == "" {
		return nil, errors.New("token secret key is required")
	}
	svc.secret = []byte(secretKey)
	return svc, nil
}

// GenerateTokens issues a fresh access/refresh pair for the tenant.
func (s *TokenServiceImpl) GenerateTokens(tenantID uint) (*TokenPair, error) {
	now := utils.UTCNow()

	accessToken, err := s.signToken(tenantID, AccessToken, now, now.Add(s.accessTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.signToken(tenantID, RefreshToken, now, now.Add(s.refreshTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *TokenServiceImpl) signToken(tenantID uint, tokenType TokenType, issuedAt, expiresAt time.Time) (string, error) {
	claims := &TokenClaims{
		TenantID:  tenantID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", tenantID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	if s.privateKey != nil {
		return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken parses and verifies a token and checks its type and
// revocation status.
func (s *TokenServiceImpl) ValidateToken(tokenString string, expectedType TokenType) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if s.publicKey != nil {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != expectedType {
		return nil, ErrInvalidTokenType
	}
	if s.isRevoked(claims.ID) {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// RevokeToken marks a token as unusable until it would have expired anyway.
func (s *TokenServiceImpl) RevokeToken(tokenString string) error {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.ID == "" {
		return ErrTokenInvalid
	}

	expiry := utils.UTCNowAdd(s.refreshTTL)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedTokens[claims.ID] = expiry

	// Drop entries for tokens that have expired on their own.
	now := utils.UTCNow()
	for id, exp := range s.revokedTokens {
		if exp.Before(now) {
			delete(s.revokedTokens, id)
		}
	}
	return nil
}

func (s *TokenServiceImpl) isRevoked(tokenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, revoked := s.revokedTokens[tokenID]
	return revoked
}
