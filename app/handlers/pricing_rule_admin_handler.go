package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fetchwork/pricing-api/app/dto"
	businessflow "github.com/fetchwork/pricing-api/business_flow"
	"github.com/fetchwork/pricing-api/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type PricingRuleAdminHandlerInterface interface {
	CreateRule(c fiber.Ctx) error
	UpdateRule(c fiber.Ctx) error
	DeleteRule(c fiber.Ctx) error
	ListRules(c fiber.Ctx) error
	ExportRules(c fiber.Ctx) error
}

type PricingRuleAdminHandler struct {
	flow      businessflow.PricingRuleAdminFlow
	validator *validator.Validate
}

func NewPricingRuleAdminHandler(flow businessflow.PricingRuleAdminFlow) PricingRuleAdminHandlerInterface {
	return &PricingRuleAdminHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *PricingRuleAdminHandler) ErrorResponse(c fiber.Ctx, status int, message, code string, details any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

func (h *PricingRuleAdminHandler) SuccessResponse(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// CreateRule creates a pricing rule for the authenticated tenant.
// @Summary Create a pricing rule
// @Tags Pricing Rules
// @Accept json
// @Produce json
// @Param request body dto.CreatePricingRuleRequest true "Rule definition"
// @Success 201 {object} dto.APIResponse{data=dto.PricingRuleResponse}
// @Failure 400 {object} dto.APIResponse "Invalid rule"
// @Failure 409 {object} dto.APIResponse "Base rule conflict"
// @Router /api/v1/pricing/rules [post]
func (h *PricingRuleAdminHandler) CreateRule(c fiber.Ctx) error {
	tenantID, ok := tenantIDFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.CreatePricingRuleRequest
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

	res, err := h.flow.CreateRule(h.createRequestContext(c, "/api/v1/pricing/rules"), &req, tenantID, h.clientMetadata(c))
	if err != nil {
		return h.ruleErrorResponse(c, err, "Create pricing rule failed", "RULE_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Pricing rule created", res)
}

// UpdateRule applies a partial update to one rule.
// @Summary Update a pricing rule
// @Tags Pricing Rules
// @Accept json
// @Produce json
// @Param uuid path string true "Rule UUID"
// @Param request body dto.UpdatePricingRuleRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.PricingRuleResponse}
// @Failure 404 {object} dto.APIResponse "Rule not found"
// @Router /api/v1/pricing/rules/{uuid} [put]
func (h *PricingRuleAdminHandler) UpdateRule(c fiber.Ctx) error {
	tenantID, ok := tenantIDFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ruleUUID, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule UUID", "INVALID_RULE_UUID", nil)
	}

	var req dto.UpdatePricingRuleRequest
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

	res, err := h.flow.UpdateRule(h.createRequestContext(c, "/api/v1/pricing/rules/:uuid"), ruleUUID, &req, tenantID, h.clientMetadata(c))
	if err != nil {
		return h.ruleErrorResponse(c, err, "Update pricing rule failed", "RULE_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pricing rule updated", res)
}

// DeleteRule removes one rule.
// @Summary Delete a pricing rule
// @Tags Pricing Rules
// @Produce json
// @Param uuid path string true "Rule UUID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Rule not found"
// @Router /api/v1/pricing/rules/{uuid} [delete]
func (h *PricingRuleAdminHandler) DeleteRule(c fiber.Ctx) error {
	tenantID, ok := tenantIDFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ruleUUID, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule UUID", "INVALID_RULE_UUID", nil)
	}

	if err := h.flow.DeleteRule(h.createRequestContext(c, "/api/v1/pricing/rules/:uuid"), ruleUUID, tenantID, h.clientMetadata(c)); err != nil {
		return h.ruleErrorResponse(c, err, "Delete pricing rule failed", "RULE_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pricing rule deleted", nil)
}

// ListRules returns the tenant's rules in evaluation order.
// @Summary List pricing rules
// @Tags Pricing Rules
// @Produce json
// @Param service_type query string false "Filter by service type" Enums(boarding, daycare, walk)
// @Success 200 {object} dto.APIResponse{data=dto.ListPricingRulesResponse}
// @Router /api/v1/pricing/rules [get]
func (h *PricingRuleAdminHandler) ListRules(c fiber.Ctx) error {
	tenantID, ok := tenantIDFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	req := dto.ListPricingRulesRequest{ServiceType: c.Query("service_type")}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid service type filter", "VALIDATION_ERROR", nil)
	}

	res, err := h.flow.ListRules(h.createRequestContext(c, "/api/v1/pricing/rules"), &req, tenantID)
	if err != nil {
		log.Println("List pricing rules failed:", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "List pricing rules failed", "RULE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pricing rules retrieved", res)
}

// ExportRules downloads the tenant's full rule set as an XLSX workbook.
// @Summary Export pricing rules
// @Tags Pricing Rules
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary "XLSX workbook"
// @Router /api/v1/pricing/rules/export [get]
func (h *PricingRuleAdminHandler) ExportRules(c fiber.Ctx) error {
	tenantID, ok := tenantIDFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	payload, filename, err := h.flow.ExportRules(h.createRequestContext(c, "/api/v1/pricing/rules/export"), tenantID, h.clientMetadata(c))
	if err != nil {
		log.Println("Export pricing rules failed:", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Export pricing rules failed", "RULE_EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(payload)
}

func (h *PricingRuleAdminHandler) ruleErrorResponse(c fiber.Ctx, err error, message, fallbackCode string) error {
	switch {
	case businessflow.IsRuleNotFound(err), businessflow.IsRuleAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Pricing rule not found", "RULE_NOT_FOUND", nil)
	case businessflow.IsUnknownServiceType(err), businessflow.IsNoPricingRuleMatched(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_RULE", nil)
	}

	var bizErr *businessflow.BusinessError
	if errors.As(err, &bizErr) {
		switch bizErr.Code {
		case "DUPLICATE_BASE_RULE", "BASE_RULE_NOT_FIRST", "RULE_BEFORE_BASE_RULE":
			return h.ErrorResponse(c, fiber.StatusConflict, bizErr.Message, bizErr.Code, nil)
		case "UNKNOWN_RULE_TYPE", "UNKNOWN_ADJUSTMENT_TYPE", "MALFORMED_RULE_DATA",
			"ADJUSTMENT_OUT_OF_RANGE", "RULE_NAME_REQUIRED", "TOO_MANY_RULES":
			return h.ErrorResponse(c, fiber.StatusBadRequest, bizErr.Message, bizErr.Code, nil)
		}
	}

	log.Println(message+":", err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, fallbackCode, nil)
}

func (h *PricingRuleAdminHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.RequestID = c.Get("X-Request-ID")
	return metadata
}

func (h *PricingRuleAdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *PricingRuleAdminHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
