package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/fetchwork/pricing-api/app/dto"
	"github.com/fetchwork/pricing-api/app/services"
	"github.com/fetchwork/pricing-api/models"
	"github.com/fetchwork/pricing-api/repository"
	"github.com/fetchwork/pricing-api/utils"
	"golang.org/x/crypto/bcrypt"
)

// AuthFlow authenticates tenant operators and manages their tokens.
type AuthFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshTokens(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
}

// AuthFlowImpl implements tenant authentication.
type AuthFlowImpl struct {
	tenantRepo   repository.TenantRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
}

// NewAuthFlow creates a new authentication flow.
func NewAuthFlow(
	tenantRepo repository.TenantRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
) AuthFlow {
	return &AuthFlowImpl{
		tenantRepo:   tenantRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
	}
}

// Login verifies the tenant's credentials and issues a token pair. Failed
// attempts are audited with the reason but the caller only ever sees a
// generic credential error, so probing cannot distinguish a wrong password
// from an unknown email.
func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	tenant, err := f.tenantRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil {
		f.auditLogin(ctx, nil, metadata, false, fmt.Sprintf("unknown email %s", req.Email))
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrTenantNotFound)
	}
	if !tenant.IsActiveTenant() {
		f.auditLogin(ctx, tenant, metadata, false, "tenant inactive")
		return nil, NewBusinessError("TENANT_INACTIVE", "Tenant account is inactive", ErrTenantInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tenant.PasswordHash), []byte(req.Password)); err != nil {
		f.auditLogin(ctx, tenant, metadata, false, "incorrect password")
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrIncorrectPassword)
	}

	pair, err := f.tokenService.GenerateTokens(tenant.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to issue tokens", err)
	}

	f.auditLogin(ctx, tenant, metadata, true, "login successful")

	return loginResponse(tenant, pair), nil
}

// RefreshTokens exchanges a valid refresh token for a fresh pair and
// revokes the old refresh token.
func (f *AuthFlowImpl) RefreshTokens(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	claims, err := f.tokenService.ValidateToken(req.RefreshToken, services.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired", err)
	}

	tenant, err := f.tenantRepo.ByID(ctx, claims.TenantID)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired", ErrTenantNotFound)
	}
	if !tenant.IsActiveTenant() {
		return nil, NewBusinessError("TENANT_INACTIVE", "Tenant account is inactive", ErrTenantInactive)
	}

	pair, err := f.tokenService.GenerateTokens(tenant.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to issue tokens", err)
	}

	if err := f.tokenService.RevokeToken(req.RefreshToken); err != nil {
		log.Printf("WARN: failed to revoke refresh token for tenant %d: %v", tenant.ID, err)
	}

	f.auditRefresh(ctx, tenant, metadata)

	return loginResponse(tenant, pair), nil
}

func loginResponse(tenant *models.Tenant, pair *services.TokenPair) *dto.LoginResponse {
	return &dto.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		Tenant: dto.TenantInfo{
			UUID:  tenant.UUID.String(),
			Name:  tenant.Name,
			Slug:  tenant.Slug,
			Email: tenant.Email,
		},
	}
}

func (f *AuthFlowImpl) auditLogin(ctx context.Context, tenant *models.Tenant, metadata *ClientMetadata, success bool, description string) {
	if f.auditRepo == nil {
		return
	}

	action := models.AuditActionLoginSuccessful
	if !success {
		action = models.AuditActionLoginFailed
	}

	auditLog := &models.AuditLog{
		Action:      action,
		Description: utils.ToPtr(description),
		Success:     utils.ToPtr(success),
	}
	if tenant != nil {
		auditLog.TenantID = utils.ToPtr(tenant.ID)
	}
	applyClientMetadata(auditLog, metadata)

	if err := f.auditRepo.Save(ctx, auditLog); err != nil {
		log.Printf("WARN: failed to save audit log for %s: %v", action, err)
	}
}

func (f *AuthFlowImpl) auditRefresh(ctx context.Context, tenant *models.Tenant, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}

	auditLog := &models.AuditLog{
		TenantID:    utils.ToPtr(tenant.ID),
		Action:      models.AuditActionTokenRefreshed,
		Description: utils.ToPtr("token pair refreshed"),
		Success:     utils.ToPtr(true),
	}
	applyClientMetadata(auditLog, metadata)

	if err := f.auditRepo.Save(ctx, auditLog); err != nil {
		log.Printf("WARN: failed to save audit log for %s: %v", models.AuditActionTokenRefreshed, err)
	}
}
