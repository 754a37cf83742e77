package handlers

import (
	"context"
	"log"
	"time"

	"github.com/fetchwork/pricing-api/app/dto"
	"github.com/fetchwork/pricing-api/app/middleware"
	businessflow "github.com/fetchwork/pricing-api/business_flow"
	"github.com/fetchwork/pricing-api/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type PricingHandlerInterface interface {
	PreviewPrice(c fiber.Ctx) error
}

type PricingHandler struct {
	flow      businessflow.PricingFlow
	validator *validator.Validate
}

func NewPricingHandler(flow businessflow.PricingFlow) PricingHandlerInterface {
	return &PricingHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *PricingHandler) ErrorResponse(c fiber.Ctx, status int, message, code string, details any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

func (h *PricingHandler) SuccessResponse(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// PreviewPrice computes a price for a booking context without persisting
// anything.
// @Summary Preview a price
// @Description Evaluate the tenant's pricing rules against a booking context and return the price with a per-rule breakdown
// @Tags Pricing
// @Accept json
// @Produce json
// @Param request body dto.PricePreviewRequest true "Booking context"
// @Success 200 {object} dto.APIResponse{data=dto.PricePreviewResponse}
// @Failure 400 {object} dto.APIResponse "Missing or invalid fields"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 422 {object} dto.APIResponse "No pricing rule matched"
// @Failure 500 {object} dto.APIResponse "Evaluation failed"
// @Router /api/v1/pricing/preview [post]
func (h *PricingHandler) PreviewPrice(c fiber.Ctx) error {
	tenantID, ok := tenantIDFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.PricePreviewRequest
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

	res, err := h.flow.PreviewPrice(h.createRequestContext(c, "/api/v1/pricing/preview"), &req, tenantID, metadata)
	if err != nil {
		middleware.RecordPricePreview(req.ServiceType, previewOutcome(err))
		return h.previewErrorResponse(c, err)
	}

	middleware.RecordPricePreview(req.ServiceType, "ok")
	return h.SuccessResponse(c, fiber.StatusOK, "Price computed", res)
}

// previewErrorResponse maps the pricing flow's error taxonomy onto HTTP.
// An incomplete context is the caller's fault (400), an empty match is a
// tenant configuration problem (422), and a store failure is ours (500).
func (h *PricingHandler) previewErrorResponse(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsMissingFields(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing required fields", "MISSING_REQUIRED_FIELDS",
			fiber.Map{"missing_fields": businessflow.MissingFieldsFrom(err)})
	case businessflow.IsUnknownServiceType(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown service type", "UNKNOWN_SERVICE_TYPE", nil)
	case businessflow.IsNoPricingRuleMatched(err):
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "No pricing rule matched.", "NO_PRICING_RULE_MATCHED",
			fiber.Map{"missing_fields": []string{}})
	default:
		log.Println("Price preview failed:", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Price preview failed", "PRICE_PREVIEW_FAILED", nil)
	}
}

func previewOutcome(err error) string {
	switch {
	case businessflow.IsMissingFields(err), businessflow.IsUnknownServiceType(err):
		return "invalid"
	case businessflow.IsNoPricingRuleMatched(err):
		return "no_match"
	default:
		return "error"
	}
}

func (h *PricingHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *PricingHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
