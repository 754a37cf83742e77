package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fetchwork/pricing-api/app/dto"
	"github.com/fetchwork/pricing-api/models"
	"github.com/fetchwork/pricing-api/repository"
	"github.com/fetchwork/pricing-api/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
)

// PricingRuleAdminFlow manages a tenant's pricing rules.
type PricingRuleAdminFlow interface {
	CreateRule(ctx context.Context, req *dto.CreatePricingRuleRequest, tenantID uint, metadata *ClientMetadata) (*dto.PricingRuleResponse, error)
	UpdateRule(ctx context.Context, ruleUUID uuid.UUID, req *dto.UpdatePricingRuleRequest, tenantID uint, metadata *ClientMetadata) (*dto.PricingRuleResponse, error)
	DeleteRule(ctx context.Context, ruleUUID uuid.UUID, tenantID uint, metadata *ClientMetadata) error
	ListRules(ctx context.Context, req *dto.ListPricingRulesRequest, tenantID uint) (*dto.ListPricingRulesResponse, error)
	ExportRules(ctx context.Context, tenantID uint, metadata *ClientMetadata) ([]byte, string, error)
}

// PricingRuleAdminFlowImpl implements rule administration.
type PricingRuleAdminFlowImpl struct {
	ruleRepo    repository.PricingRuleRepository
	auditRepo   repository.AuditLogRepository
	redisClient *redis.Client
}

// NewPricingRuleAdminFlow creates a new rule administration flow.
func NewPricingRuleAdminFlow(
	ruleRepo repository.PricingRuleRepository,
	auditRepo repository.AuditLogRepository,
	redisClient *redis.Client,
) PricingRuleAdminFlow {
	return &PricingRuleAdminFlowImpl{
		ruleRepo:    ruleRepo,
		auditRepo:   auditRepo,
		redisClient: redisClient,
	}
}

// CreateRule validates and persists a new rule for the tenant, then drops
// the cached candidate set so the next preview sees it.
func (f *PricingRuleAdminFlowImpl) CreateRule(ctx context.Context, req *dto.CreatePricingRuleRequest, tenantID uint, metadata *ClientMetadata) (*dto.PricingRuleResponse, error) {
	rule := &models.PricingRule{
		UUID:            uuid.New(),
		TenantID:        tenantID,
		ServiceType:     req.ServiceType,
		Name:            req.Name,
		Description:     req.Description,
		RuleType:        req.RuleType,
		RuleData:        req.RuleData,
		Priority:        req.Priority,
		AdjustmentType:  req.AdjustmentType,
		AdjustmentValue: req.AdjustmentValue,
		Enabled:         req.Enabled,
		CreatedAt:       utils.UTCNow(),
		UpdatedAt:       utils.UTCNow(),
	}
	if rule.Enabled == nil {
		rule.Enabled = utils.ToPtr(true)
	}

	if err := validateRule(rule); err != nil {
		return nil, err
	}

	existing, err := f.ruleRepo.ListByTenant(ctx, tenantID, rule.ServiceType)
	if err != nil {
		return nil, NewBusinessError("RULE_FETCH_FAILED",
			"Failed to load existing rules", fmt.Errorf("%w: %w", ErrRuleFetchFailed, err))
	}
	if len(existing) >= utils.MaxRulesPerTenant {
		return nil, NewBusinessError("TOO_MANY_RULES",
			"Rule limit reached for this service type", ErrTooManyRules)
	}
	if err := checkBaseRulePlacement(existing, rule); err != nil {
		return nil, err
	}

	if err := f.ruleRepo.Save(ctx, rule); err != nil {
		return nil, NewBusinessError("RULE_SAVE_FAILED", "Failed to save pricing rule", err)
	}

	f.invalidateRuleCache(ctx, tenantID, rule.ServiceType)
	f.auditRuleChange(ctx, tenantID, models.AuditActionRuleCreated, rule, metadata)

	return toRuleResponse(rule), nil
}

// UpdateRule applies a partial update to one of the tenant's rules.
func (f *PricingRuleAdminFlowImpl) UpdateRule(ctx context.Context, ruleUUID uuid.UUID, req *dto.UpdatePricingRuleRequest, tenantID uint, metadata *ClientMetadata) (*dto.PricingRuleResponse, error) {
	rule, err := f.loadOwnedRule(ctx, ruleUUID, tenantID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = req.Description
	}
	if req.RuleData != nil {
		rule.RuleData = req.RuleData
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.AdjustmentType != nil {
		rule.AdjustmentType = *req.AdjustmentType
	}
	if req.AdjustmentValue != nil {
		rule.AdjustmentValue = *req.AdjustmentValue
	}
	if req.Enabled != nil {
		rule.Enabled = req.Enabled
	}
	rule.UpdatedAt = utils.UTCNow()

	if err := validateRule(rule); err != nil {
		return nil, err
	}

	existing, err := f.ruleRepo.ListByTenant(ctx, tenantID, rule.ServiceType)
	if err != nil {
		return nil, NewBusinessError("RULE_FETCH_FAILED",
			"Failed to load existing rules", fmt.Errorf("%w: %w", ErrRuleFetchFailed, err))
	}
	if err := checkBaseRulePlacement(existing, rule); err != nil {
		return nil, err
	}

	if err := f.ruleRepo.Update(ctx, rule); err != nil {
		return nil, NewBusinessError("RULE_SAVE_FAILED", "Failed to update pricing rule", err)
	}

	f.invalidateRuleCache(ctx, tenantID, rule.ServiceType)
	f.auditRuleChange(ctx, tenantID, models.AuditActionRuleUpdated, rule, metadata)

	return toRuleResponse(rule), nil
}

// DeleteRule removes one of the tenant's rules.
func (f *PricingRuleAdminFlowImpl) DeleteRule(ctx context.Context, ruleUUID uuid.UUID, tenantID uint, metadata *ClientMetadata) error {
	rule, err := f.loadOwnedRule(ctx, ruleUUID, tenantID)
	if err != nil {
		return err
	}

	if err := f.ruleRepo.Delete(ctx, rule.ID); err != nil {
		return NewBusinessError("RULE_DELETE_FAILED", "Failed to delete pricing rule", err)
	}

	f.invalidateRuleCache(ctx, tenantID, rule.ServiceType)
	f.auditRuleChange(ctx, tenantID, models.AuditActionRuleDeleted, rule, metadata)

	return nil
}

// ListRules returns the tenant's rules in evaluation order, enabled or not.
func (f *PricingRuleAdminFlowImpl) ListRules(ctx context.Context, req *dto.ListPricingRulesRequest, tenantID uint) (*dto.ListPricingRulesResponse, error) {
	rules, err := f.ruleRepo.ListByTenant(ctx, tenantID, req.ServiceType)
	if err != nil {
		return nil, NewBusinessError("RULE_FETCH_FAILED",
			"Failed to load pricing rules", fmt.Errorf("%w: %w", ErrRuleFetchFailed, err))
	}

	resp := &dto.ListPricingRulesResponse{
		Rules: make([]dto.PricingRuleResponse, 0, len(rules)),
		Total: len(rules),
	}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, *toRuleResponse(rule))
	}
	return resp, nil
}

// ExportRules renders the tenant's full rule set as an XLSX workbook.
func (f *PricingRuleAdminFlowImpl) ExportRules(ctx context.Context, tenantID uint, metadata *ClientMetadata) ([]byte, string, error) {
	rules, err := f.ruleRepo.ListByTenant(ctx, tenantID, "")
	if err != nil {
		return nil, "", NewBusinessError("RULE_FETCH_FAILED",
			"Failed to load pricing rules", fmt.Errorf("%w: %w", ErrRuleFetchFailed, err))
	}

	workbook := excelize.NewFile()
	defer func() {
		if err := workbook.Close(); err != nil {
			log.Printf("WARN: failed to close workbook: %v", err)
		}
	}()

	const sheet = "Pricing Rules"
	workbook.SetSheetName(workbook.GetSheetName(0), sheet)

	headers := []string{"UUID", "Service Type", "Name", "Description", "Rule Type", "Rule Data", "Priority", "Adjustment Type", "Adjustment Value", "Enabled", "Created At", "Updated At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := workbook.SetCellValue(sheet, cell, header); err != nil {
			return nil, "", NewBusinessError("RULE_EXPORT_FAILED", "Failed to build export", err)
		}
	}

	for row, rule := range rules {
		values := []interface{}{
			rule.UUID.String(),
			rule.ServiceType,
			rule.Name,
			derefString(rule.Description),
			rule.RuleType,
			string(rule.RuleData),
			rule.Priority,
			rule.AdjustmentType,
			rule.AdjustmentValue,
			rule.IsEnabled(),
			rule.CreatedAt.Format(time.RFC3339),
			rule.UpdatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := workbook.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", NewBusinessError("RULE_EXPORT_FAILED", "Failed to build export", err)
			}
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, "", NewBusinessError("RULE_EXPORT_FAILED", "Failed to render export", err)
	}

	f.auditExport(ctx, tenantID, len(rules), metadata)

	filename := fmt.Sprintf("pricing-rules-%s.xlsx", utils.UTCNow().Format("20060102-150405"))
	return buf.Bytes(), filename, nil
}

func (f *PricingRuleAdminFlowImpl) loadOwnedRule(ctx context.Context, ruleUUID uuid.UUID, tenantID uint) (*models.PricingRule, error) {
	rule, err := f.ruleRepo.ByUUID(ctx, ruleUUID)
	if err != nil {
		return nil, NewBusinessError("RULE_FETCH_FAILED",
			"Failed to load pricing rule", fmt.Errorf("%w: %w", ErrRuleFetchFailed, err))
	}
	if rule == nil {
		return nil, NewBusinessError("RULE_NOT_FOUND", "Pricing rule not found", ErrRuleNotFound)
	}
	if rule.TenantID != tenantID {
		// Do not reveal that the UUID exists under another tenant.
		return nil, NewBusinessError("RULE_NOT_FOUND", "Pricing rule not found", ErrRuleAccessDenied)
	}
	return rule, nil
}

// validateRule rejects malformed rules at write time so evaluation never
// sees them.
func validateRule(rule *models.PricingRule) error {
	if !models.IsKnownServiceType(rule.ServiceType) {
		return NewBusinessErrorf("UNKNOWN_SERVICE_TYPE",
			"Unknown service type: %s", ErrUnknownServiceType, rule.ServiceType)
	}
	switch rule.RuleType {
	case models.RuleTypeBase, models.RuleTypeMultiDog, models.RuleTypeWeekend, models.RuleTypeLengthOfStay:
	default:
		return NewBusinessErrorf("UNKNOWN_RULE_TYPE",
			"Unknown rule type: %s", ErrUnknownRuleType, rule.RuleType)
	}
	switch rule.AdjustmentType {
	case models.AdjustmentTypeFlat, models.AdjustmentTypePercent:
	default:
		return NewBusinessErrorf("UNKNOWN_ADJUSTMENT_TYPE",
			"Unknown adjustment type: %s", ErrUnknownAdjustmentType, rule.AdjustmentType)
	}
	if rule.AdjustmentType == models.AdjustmentTypePercent &&
		(rule.AdjustmentValue < -100 || rule.AdjustmentValue > 1000) {
		return NewBusinessError("ADJUSTMENT_OUT_OF_RANGE",
			"Percent adjustment value must be between -100 and 1000", ErrPercentValueOutOfRange)
	}
	if rule.Name == "" {
		return NewBusinessError("RULE_NAME_REQUIRED", "Rule name is required", ErrRuleNameRequired)
	}
	if _, err := rule.Params(); err != nil {
		return NewBusinessError("MALFORMED_RULE_DATA",
			"Rule data is malformed", fmt.Errorf("%w: %w", ErrMalformedRuleData, err))
	}
	return nil
}

// checkBaseRulePlacement enforces that a (tenant, service type) candidate
// set has at most one enabled base rule and that it sorts strictly first.
// A percent rule that runs before the base would apply to a zero price, so
// misplacement is rejected at write time rather than surprising evaluation.
func checkBaseRulePlacement(existing []*models.PricingRule, candidate *models.PricingRule) error {
	if !candidate.IsEnabled() {
		return nil
	}

	for _, other := range existing {
		if other.ID == candidate.ID || !other.IsEnabled() {
			continue
		}
		if candidate.RuleType == models.RuleTypeBase {
			if other.RuleType == models.RuleTypeBase {
				return NewBusinessError("DUPLICATE_BASE_RULE",
					"An enabled base rule already exists for this service type", ErrDuplicateBaseRule)
			}
			if other.Priority <= candidate.Priority {
				return NewBusinessError("BASE_RULE_NOT_FIRST",
					"Base rule must have the lowest priority in its candidate set", ErrBaseRuleNotFirst)
			}
		} else if other.RuleType == models.RuleTypeBase && other.Priority >= candidate.Priority {
			return NewBusinessError("RULE_BEFORE_BASE_RULE",
				"Rule priority must be greater than the base rule priority", ErrRuleBeforeBaseRule)
		}
	}
	return nil
}

// invalidateRuleCache drops the cached candidate set after any write.
func (f *PricingRuleAdminFlowImpl) invalidateRuleCache(ctx context.Context, tenantID uint, serviceType string) {
	if f.redisClient == nil {
		return
	}
	key := ruleCacheKey(tenantID, serviceType)
	if err := f.redisClient.Del(ctx, key).Err(); err != nil {
		log.Printf("WARN: rule cache invalidation failed for %s: %v", key, err)
	}
}

func (f *PricingRuleAdminFlowImpl) auditRuleChange(ctx context.Context, tenantID uint, action string, rule *models.PricingRule, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"rule_uuid":    rule.UUID.String(),
		"service_type": rule.ServiceType,
		"rule_type":    rule.RuleType,
		"priority":     rule.Priority,
	})

	auditLog := &models.AuditLog{
		TenantID:    utils.ToPtr(tenantID),
		Action:      action,
		Description: utils.ToPtr(fmt.Sprintf("%s %q for %s", action, rule.Name, rule.ServiceType)),
		Metadata:    meta,
		Success:     utils.ToPtr(true),
	}
	applyClientMetadata(auditLog, metadata)

	if err := f.auditRepo.Save(ctx, auditLog); err != nil {
		log.Printf("WARN: failed to save audit log for %s: %v", action, err)
	}
}

func (f *PricingRuleAdminFlowImpl) auditExport(ctx context.Context, tenantID uint, ruleCount int, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}

	auditLog := &models.AuditLog{
		TenantID:    utils.ToPtr(tenantID),
		Action:      models.AuditActionRulesExported,
		Description: utils.ToPtr(fmt.Sprintf("exported %d pricing rules", ruleCount)),
		Success:     utils.ToPtr(true),
	}
	applyClientMetadata(auditLog, metadata)

	if err := f.auditRepo.Save(ctx, auditLog); err != nil {
		log.Printf("WARN: failed to save audit log for %s: %v", models.AuditActionRulesExported, err)
	}
}

func applyClientMetadata(auditLog *models.AuditLog, metadata *ClientMetadata) {
	if metadata == nil {
		return
	}
	if metadata.IPAddress != "" {
		auditLog.IPAddress = utils.ToPtr(metadata.IPAddress)
	}
	if metadata.UserAgent != "" {
		auditLog.UserAgent = utils.ToPtr(metadata.UserAgent)
	}
	if metadata.RequestID != "" {
		auditLog.RequestID = utils.ToPtr(metadata.RequestID)
	}
}

// toRuleResponse maps the stored rule to its API shape.
func toRuleResponse(rule *models.PricingRule) *dto.PricingRuleResponse {
	return &dto.PricingRuleResponse{
		UUID:            rule.UUID.String(),
		ServiceType:     rule.ServiceType,
		Name:            rule.Name,
		Description:     rule.Description,
		RuleType:        rule.RuleType,
		RuleData:        rule.RuleData,
		Priority:        rule.Priority,
		AdjustmentType:  rule.AdjustmentType,
		AdjustmentValue: rule.AdjustmentValue,
		Enabled:         rule.IsEnabled(),
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}
}
