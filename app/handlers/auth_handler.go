package handlers

import (
	"context"
	"log"
	"time"

	"github.com/fetchwork/pricing-api/app/dto"
	businessflow "github.com/fetchwork/pricing-api/business_flow"
	"github.com/fetchwork/pricing-api/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	RefreshTokens(c fiber.Ctx) error
}

type AuthHandler struct {
	flow      businessflow.AuthFlow
	validator *validator.Validate
}

func NewAuthHandler(flow businessflow.AuthFlow) AuthHandlerInterface {
	return &AuthHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *AuthHandler) ErrorResponse(c fiber.Ctx, status int, message, code string, details any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

func (h *AuthHandler) SuccessResponse(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// Login authenticates a tenant operator and issues a token pair.
// @Summary Tenant login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Tenant inactive"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request format", "INVALID_REQUEST_FORMAT", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		validationErrors := make(map[string]string)
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors[err.Field()] = getValidationErrorMessage(err)
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.RequestID = c.Get("X-Request-ID")

	res, err := h.flow.Login(h.createRequestContext(c, "/api/v1/auth/login"), &req, metadata)
	if err != nil {
		switch {
		case businessflow.IsTenantNotFound(err), businessflow.IsIncorrectPassword(err):
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		case businessflow.IsTenantInactive(err):
			return h.ErrorResponse(c, fiber.StatusForbidden, "Tenant account is inactive", "TENANT_INACTIVE", nil)
		default:
			log.Println("Login failed:", err)
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
		}
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", res)
}

// RefreshTokens exchanges a refresh token for a new token pair.
// @Summary Refresh tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshTokens(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request format", "INVALID_REQUEST_FORMAT", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Refresh token is required", "VALIDATION_ERROR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.RequestID = c.Get("X-Request-ID")

	res, err := h.flow.RefreshTokens(h.createRequestContext(c, "/api/v1/auth/refresh"), &req, metadata)
	if err != nil {
		switch {
		case businessflow.IsTenantInactive(err):
			return h.ErrorResponse(c, fiber.StatusForbidden, "Tenant account is inactive", "TENANT_INACTIVE", nil)
		default:
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Refresh token is invalid or expired", "INVALID_REFRESH_TOKEN", nil)
		}
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tokens refreshed", res)
}

func (h *AuthHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AuthHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
