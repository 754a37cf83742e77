package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/fetchwork/pricing-api/app/dto"
	"github.com/fetchwork/pricing-api/models"
	"github.com/fetchwork/pricing-api/repository"
	"github.com/fetchwork/pricing-api/utils"
	"github.com/redis/go-redis/v9"
)

// PricingFlow computes a price preview for one booking context.
type PricingFlow interface {
	PreviewPrice(ctx context.Context, req *dto.PricePreviewRequest, tenantID uint, metadata *ClientMetadata) (*dto.PricePreviewResponse, error)
}

// PricingContext is the booking context a price is computed against.
// Optional fields are pointers; nil means the caller did not supply the
// field at all, which is what the required-field check tests for.
type PricingContext struct {
	TenantID          uint
	ServiceType       string
	DropOffDay        *string
	PickUpDay         *string
	SessionDate       *string
	WalkLengthMinutes *int
	DogIDs            []string
}

// requiredContextFields maps each service type to the context fields that
// must be present before any rule is fetched or evaluated.
var requiredContextFields = map[string][]string{
	models.ServiceTypeBoarding: {"tenant_id", "drop_off_day", "pick_up_day", "dog_ids"},
	models.ServiceTypeDaycare:  {"tenant_id", "session_date", "dog_ids"},
	models.ServiceTypeWalk:     {"tenant_id", "session_date", "walk_length_minutes", "dog_ids"},
}

// contextDateLayout is the wire format for day fields.
const contextDateLayout = "2006-01-02"

// ruleCacheKey namespaces the per-tenant candidate rule set in Redis.
func ruleCacheKey(tenantID uint, serviceType string) string {
	return fmt.Sprintf("pricing:rules:%d:%s", tenantID, serviceType)
}

// PricingFlowImpl implements the price preview use case.
type PricingFlowImpl struct {
	ruleReader  repository.PricingRuleReader
	auditRepo   repository.AuditLogRepository
	redisClient *redis.Client
}

// NewPricingFlow creates a new pricing flow. redisClient may be nil, in
// which case every preview reads rules straight from the store.
func NewPricingFlow(
	ruleReader repository.PricingRuleReader,
	auditRepo repository.AuditLogRepository,
	redisClient *redis.Client,
) PricingFlow {
	return &PricingFlowImpl{
		ruleReader:  ruleReader,
		auditRepo:   auditRepo,
		redisClient: redisClient,
	}
}

// PreviewPrice validates the booking context, fetches the tenant's candidate
// rules and folds them into a final price with a per-rule breakdown.
func (f *PricingFlowImpl) PreviewPrice(ctx context.Context, req *dto.PricePreviewRequest, tenantID uint, metadata *ClientMetadata) (*dto.PricePreviewResponse, error) {
	pctx := &PricingContext{
		TenantID:          tenantID,
		ServiceType:       req.ServiceType,
		DropOffDay:        req.DropOffDay,
		PickUpDay:         req.PickUpDay,
		SessionDate:       req.SessionDate,
		WalkLengthMinutes: req.WalkLengthMinutes,
		DogIDs:            req.DogIDs,
	}

	if !models.IsKnownServiceType(pctx.ServiceType) {
		f.auditPreview(ctx, pctx, metadata, false, fmt.Sprintf("unknown service type %q", pctx.ServiceType))
		return nil, NewBusinessErrorf("UNKNOWN_SERVICE_TYPE",
			"Unknown service type: %s", ErrUnknownServiceType, pctx.ServiceType)
	}

	// Required fields are checked before the rule fetch; an incomplete
	// context never reaches the store.
	if missing := MissingContextFields(pctx); len(missing) > 0 {
		f.auditPreview(ctx, pctx, metadata, false, fmt.Sprintf("missing fields: %v", missing))
		return nil, &MissingFieldsError{ServiceType: pctx.ServiceType, MissingFields: missing}
	}

	rules, err := f.fetchCandidateRules(ctx, pctx.TenantID, pctx.ServiceType)
	if err != nil {
		f.auditPreview(ctx, pctx, metadata, false, err.Error())
		return nil, NewBusinessError("RULE_FETCH_FAILED",
			"Failed to load pricing rules", fmt.Errorf("%w: %w", ErrRuleFetchFailed, err))
	}

	price, breakdown := evaluateRules(rules, pctx)
	if len(breakdown) == 0 {
		f.auditPreview(ctx, pctx, metadata, false, "no pricing rule matched")
		return nil, NewBusinessError("NO_PRICING_RULE_MATCHED",
			"No pricing rule matched.", ErrNoPricingRuleMatched)
	}

	f.auditPreview(ctx, pctx, metadata, true, fmt.Sprintf("price %.2f from %d rules", price, len(breakdown)))

	return &dto.PricePreviewResponse{
		ServiceType: pctx.ServiceType,
		Price:       price,
		Breakdown:   breakdown,
	}, nil
}

// MissingContextFields returns the required fields absent from the context,
// in the order the service type's field table lists them. A present zero
// value (an empty string, zero minutes, an empty dog list) is not missing;
// only a field the caller never supplied is.
func MissingContextFields(pctx *PricingContext) []string {
	required, ok := requiredContextFields[pctx.ServiceType]
	if !ok {
		return nil
	}

	var missing []string
	for _, field := range required {
		if !contextFieldPresent(pctx, field) {
			missing = append(missing, field)
		}
	}
	return missing
}

func contextFieldPresent(pctx *PricingContext, field string) bool {
	switch field {
	case "tenant_id":
		return pctx.TenantID != 0
	case "drop_off_day":
		return pctx.DropOffDay != nil
	case "pick_up_day":
		return pctx.PickUpDay != nil
	case "session_date":
		return pctx.SessionDate != nil
	case "walk_length_minutes":
		return pctx.WalkLengthMinutes != nil
	case "dog_ids":
		return pctx.DogIDs != nil
	default:
		return false
	}
}

// fetchCandidateRules reads the candidate set through the Redis cache when
// one is configured. Cache failures fall through to the store; a store
// failure is hard and surfaces to the caller, never an empty rule set.
func (f *PricingFlowImpl) fetchCandidateRules(ctx context.Context, tenantID uint, serviceType string) ([]*models.PricingRule, error) {
	key := ruleCacheKey(tenantID, serviceType)

	if f.redisClient != nil {
		cached, err := f.redisClient.Get(ctx, key).Result()
		if err == nil {
			var rules []*models.PricingRule
			if err := json.Unmarshal([]byte(cached), &rules); err == nil {
				return rules, nil
			}
			// Corrupt entry, drop it and re-read from the store.
			f.redisClient.Del(ctx, key)
		} else if err != redis.Nil {
			log.Printf("WARN: rule cache read failed for %s: %v", key, err)
		}
	}

	rules, err := f.ruleReader.ListCandidates(ctx, tenantID, serviceType)
	if err != nil {
		return nil, err
	}

	if f.redisClient != nil {
		if payload, err := json.Marshal(rules); err == nil {
			if err := f.redisClient.Set(ctx, key, payload, utils.RuleCacheTTL).Err(); err != nil {
				log.Printf("WARN: rule cache write failed for %s: %v", key, err)
			}
		}
	}

	return rules, nil
}

// evaluateRules folds the candidate rules, already in evaluation order,
// into a price. Each applied rule appends one breakdown entry; a rule whose
// predicate or parameters fail appends an entry with a zero adjustment and
// leaves the running price untouched. The final price is rounded to cents
// here and nowhere else.
func evaluateRules(rules []*models.PricingRule, pctx *PricingContext) (float64, []dto.BreakdownEntry) {
	var price float64
	var breakdown []dto.BreakdownEntry

	for _, rule := range rules {
		params, err := rule.Params()
		if err != nil {
			breakdown = append(breakdown, failedEntry(rule, price, err))
			continue
		}

		applies, err := ruleApplies(rule, params, pctx)
		if err != nil {
			breakdown = append(breakdown, failedEntry(rule, price, err))
			continue
		}
		if !applies {
			continue
		}

		var adjustment float64
		switch {
		case rule.RuleType == models.RuleTypeBase:
			// A base rule sets the running price outright; its
			// adjustment reports the price it set.
			adjustment = rule.AdjustmentValue
			price = rule.AdjustmentValue
		case rule.AdjustmentType == models.AdjustmentTypePercent:
			adjustment = price * rule.AdjustmentValue / 100
			price += adjustment
		default:
			adjustment = rule.AdjustmentValue
			price += adjustment
		}

		breakdown = append(breakdown, dto.BreakdownEntry{
			RuleUUID:    rule.UUID.String(),
			Name:        rule.Name,
			RuleType:    rule.RuleType,
			Description: derefString(rule.Description),
			Adjustment:  adjustment,
			PriceSoFar:  price,
		})
	}

	return roundToCents(price), breakdown
}

// ruleApplies runs the matching predicate for the rule's type. Unknown rule
// types never apply and never error, so tenants can stage new rule types
// without breaking live evaluation.
func ruleApplies(rule *models.PricingRule, params *models.RuleParams, pctx *PricingContext) (bool, error) {
	switch rule.RuleType {
	case models.RuleTypeBase:
		return true, nil

	case models.RuleTypeMultiDog:
		minDogs := 2
		if params.MinDogs != nil {
			minDogs = *params.MinDogs
		}
		return len(pctx.DogIDs) >= minDogs, nil

	case models.RuleTypeWeekend:
		days := params.Days
		if len(days) == 0 {
			days = []int{0, 6}
		}
		dates, err := contextDates(pctx)
		if err != nil {
			return false, err
		}
		for _, d := range dates {
			weekday := int(d.Weekday())
			for _, want := range days {
				if weekday == want {
					return true, nil
				}
			}
		}
		return false, nil

	case models.RuleTypeLengthOfStay:
		if pctx.DropOffDay == nil || pctx.PickUpDay == nil {
			return false, nil
		}
		dropOff, err := time.Parse(contextDateLayout, *pctx.DropOffDay)
		if err != nil {
			return false, fmt.Errorf("invalid drop_off_day %q: %w", *pctx.DropOffDay, err)
		}
		pickUp, err := time.Parse(contextDateLayout, *pctx.PickUpDay)
		if err != nil {
			return false, fmt.Errorf("invalid pick_up_day %q: %w", *pctx.PickUpDay, err)
		}
		nights := int(pickUp.Sub(dropOff).Hours() / 24)
		if nights < 0 {
			return false, fmt.Errorf("pick_up_day %q before drop_off_day %q", *pctx.PickUpDay, *pctx.DropOffDay)
		}
		minNights := 1
		if params.MinNights != nil {
			minNights = *params.MinNights
		}
		return nights >= minNights, nil

	default:
		return false, nil
	}
}

// contextDates parses every day field the context carries. At least one must
// parse for a day-of-week predicate to run.
func contextDates(pctx *PricingContext) ([]time.Time, error) {
	var dates []time.Time
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"drop_off_day", pctx.DropOffDay},
		{"pick_up_day", pctx.PickUpDay},
		{"session_date", pctx.SessionDate},
	} {
		if field.value == nil {
			continue
		}
		d, err := time.Parse(contextDateLayout, *field.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", field.name, *field.value, err)
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no date field present")
	}
	return dates, nil
}

func failedEntry(rule *models.PricingRule, price float64, err error) dto.BreakdownEntry {
	return dto.BreakdownEntry{
		RuleUUID:    rule.UUID.String(),
		Name:        rule.Name,
		RuleType:    rule.RuleType,
		Description: fmt.Sprintf("rule not applied: %v", err),
		Adjustment:  0,
		PriceSoFar:  price,
	}
}

// roundToCents rounds half away from zero to two decimals.
func roundToCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// auditPreview records the preview attempt. Audit failures are logged and
// swallowed; they never affect the pricing result.
func (f *PricingFlowImpl) auditPreview(ctx context.Context, pctx *PricingContext, metadata *ClientMetadata, success bool, description string) {
	if f.auditRepo == nil {
		return
	}

	action := models.AuditActionPricePreviewed
	if !success {
		action = models.AuditActionPricePreviewFailed
	}

	auditLog := &models.AuditLog{
		TenantID:    utils.ToPtr(pctx.TenantID),
		Action:      action,
		Description: utils.ToPtr(fmt.Sprintf("%s preview: %s", pctx.ServiceType, description)),
		Success:     utils.ToPtr(success),
	}
	applyClientMetadata(auditLog, metadata)

	if err := f.auditRepo.Save(ctx, auditLog); err != nil {
		log.Printf("WARN: failed to save audit log for %s: %v", action, err)
	}
}
