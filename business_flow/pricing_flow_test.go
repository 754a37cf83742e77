package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fetchwork/pricing-api/app/dto"
	"github.com/fetchwork/pricing-api/models"
	"github.com/fetchwork/pricing-api/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRuleReader counts fetches so tests can assert the validation
// short-circuit never touches the store.
type stubRuleReader struct {
	rules []*models.PricingRule
	err   error
	calls int
}

func (s *stubRuleReader) ListCandidates(ctx context.Context, tenantID uint, serviceType string) ([]*models.PricingRule, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rules, nil
}

func newTestRule(ruleType string, priority int, adjustmentType string, adjustmentValue float64, ruleData string) *models.PricingRule {
	var raw json.RawMessage
	if ruleData != "" {
		raw = json.RawMessage(ruleData)
	}
	return &models.PricingRule{
		UUID:            uuid.New(),
		TenantID:        1,
		ServiceType:     models.ServiceTypeBoarding,
		Name:            ruleType + " rule",
		RuleType:        ruleType,
		RuleData:        raw,
		Priority:        priority,
		AdjustmentType:  adjustmentType,
		AdjustmentValue: adjustmentValue,
		Enabled:         utils.ToPtr(true),
	}
}

func boardingContext() *PricingContext {
	return &PricingContext{
		TenantID:    1,
		ServiceType: models.ServiceTypeBoarding,
		DropOffDay:  utils.ToPtr("2026-08-28"), // Friday
		PickUpDay:   utils.ToPtr("2026-08-31"), // Monday
		DogIDs:      []string{"dog-1"},
	}
}

func TestMissingContextFields(t *testing.T) {
	tests := []struct {
		name    string
		pctx    *PricingContext
		missing []string
	}{
		{
			name: "boarding with all fields present",
			pctx: &PricingContext{
				TenantID:    1,
				ServiceType: models.ServiceTypeBoarding,
				DropOffDay:  utils.ToPtr("2026-08-28"),
				PickUpDay:   utils.ToPtr("2026-08-31"),
				DogIDs:      []string{"dog-1"},
			},
			missing: nil,
		},
		{
			name: "boarding missing both day fields",
			pctx: &PricingContext{
				TenantID:    1,
				ServiceType: models.ServiceTypeBoarding,
				DogIDs:      []string{"dog-1"},
			},
			missing: []string{"drop_off_day", "pick_up_day"},
		},
		{
			name: "walk missing minutes and dogs",
			pctx: &PricingContext{
				TenantID:    1,
				ServiceType: models.ServiceTypeWalk,
				SessionDate: utils.ToPtr("2026-08-28"),
			},
			missing: []string{"walk_length_minutes", "dog_ids"},
		},
		{
			name: "daycare missing everything but tenant",
			pctx: &PricingContext{
				TenantID:    1,
				ServiceType: models.ServiceTypeDaycare,
			},
			missing: []string{"session_date", "dog_ids"},
		},
		{
			name: "zero walk length is present, not missing",
			pctx: &PricingContext{
				TenantID:          1,
				ServiceType:       models.ServiceTypeWalk,
				SessionDate:       utils.ToPtr("2026-08-28"),
				WalkLengthMinutes: utils.ToPtr(0),
				DogIDs:            []string{"dog-1"},
			},
			missing: nil,
		},
		{
			name: "empty but non-nil dog list is present",
			pctx: &PricingContext{
				TenantID:    1,
				ServiceType: models.ServiceTypeDaycare,
				SessionDate: utils.ToPtr("2026-08-28"),
				DogIDs:      []string{},
			},
			missing: nil,
		},
		{
			name: "empty date string is present",
			pctx: &PricingContext{
				TenantID:    1,
				ServiceType: models.ServiceTypeDaycare,
				SessionDate: utils.ToPtr(""),
				DogIDs:      []string{"dog-1"},
			},
			missing: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, MissingContextFields(tt.pctx))
		})
	}
}

func TestPreviewPrice_MissingFieldsSkipsFetch(t *testing.T) {
	reader := &stubRuleReader{}
	flow := NewPricingFlow(reader, nil, nil)

	req := &dto.PricePreviewRequest{
		ServiceType: models.ServiceTypeBoarding,
		DogIDs:      []string{"dog-1"},
	}

	_, err := flow.PreviewPrice(context.Background(), req, 1, nil)
	require.Error(t, err)
	assert.True(t, IsMissingFields(err))
	assert.Equal(t, []string{"drop_off_day", "pick_up_day"}, MissingFieldsFrom(err))
	assert.Equal(t, 0, reader.calls, "rule fetch must not happen for an incomplete context")
}

func TestPreviewPrice_UnknownServiceType(t *testing.T) {
	reader := &stubRuleReader{}
	flow := NewPricingFlow(reader, nil, nil)

	req := &dto.PricePreviewRequest{ServiceType: "grooming"}

	_, err := flow.PreviewPrice(context.Background(), req, 1, nil)
	require.Error(t, err)
	assert.True(t, IsUnknownServiceType(err))
	assert.Equal(t, 0, reader.calls)
}

func TestPreviewPrice_StoreFailureIsHard(t *testing.T) {
	reader := &stubRuleReader{err: errors.New("connection refused")}
	flow := NewPricingFlow(reader, nil, nil)

	req := &dto.PricePreviewRequest{
		ServiceType: models.ServiceTypeBoarding,
		DropOffDay:  utils.ToPtr("2026-08-28"),
		PickUpDay:   utils.ToPtr("2026-08-31"),
		DogIDs:      []string{"dog-1"},
	}

	res, err := flow.PreviewPrice(context.Background(), req, 1, nil)
	require.Error(t, err)
	assert.Nil(t, res, "a store failure must never degrade to an empty rule set")
	assert.True(t, IsRuleFetchFailed(err))
}

func TestPreviewPrice_NoRuleMatched(t *testing.T) {
	// A single multi_dog rule that does not apply to a one-dog booking.
	reader := &stubRuleReader{rules: []*models.PricingRule{
		newTestRule(models.RuleTypeMultiDog, 10, models.AdjustmentTypeFlat, 15, ""),
	}}
	flow := NewPricingFlow(reader, nil, nil)

	req := &dto.PricePreviewRequest{
		ServiceType: models.ServiceTypeBoarding,
		DropOffDay:  utils.ToPtr("2026-08-28"),
		PickUpDay:   utils.ToPtr("2026-08-31"),
		DogIDs:      []string{"dog-1"},
	}

	_, err := flow.PreviewPrice(context.Background(), req, 1, nil)
	require.Error(t, err)
	assert.True(t, IsNoPricingRuleMatched(err))
}

func TestPreviewPrice_BaseAndFlatAdjustment(t *testing.T) {
	reader := &stubRuleReader{rules: []*models.PricingRule{
		newTestRule(models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 50, ""),
		newTestRule(models.RuleTypeMultiDog, 10, models.AdjustmentTypeFlat, 15, `{"min_dogs": 2}`),
	}}
	flow := NewPricingFlow(reader, nil, nil)

	req := &dto.PricePreviewRequest{
		ServiceType: models.ServiceTypeBoarding,
		DropOffDay:  utils.ToPtr("2026-08-24"), // Monday
		PickUpDay:   utils.ToPtr("2026-08-26"), // Wednesday
		DogIDs:      []string{"dog-1", "dog-2", "dog-3"},
	}

	res, err := flow.PreviewPrice(context.Background(), req, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 65.0, res.Price)

	require.Len(t, res.Breakdown, 2)
	assert.Equal(t, models.RuleTypeBase, res.Breakdown[0].RuleType)
	assert.Equal(t, 50.0, res.Breakdown[0].Adjustment)
	assert.Equal(t, 50.0, res.Breakdown[0].PriceSoFar)
	assert.Equal(t, models.RuleTypeMultiDog, res.Breakdown[1].RuleType)
	assert.Equal(t, 15.0, res.Breakdown[1].Adjustment)
	assert.Equal(t, 65.0, res.Breakdown[1].PriceSoFar)
}

func TestEvaluateRules_PercentAppliesToRunningTotal(t *testing.T) {
	rules := []*models.PricingRule{
		newTestRule(models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 100, ""),
		newTestRule(models.RuleTypeWeekend, 10, models.AdjustmentTypePercent, 10, ""),
	}
	pctx := boardingContext()
	pctx.DropOffDay = utils.ToPtr("2026-08-29") // Saturday
	pctx.PickUpDay = utils.ToPtr("2026-08-31")  // Monday

	price, breakdown := evaluateRules(rules, pctx)
	require.Len(t, breakdown, 2)
	assert.Equal(t, 110.0, price)
	assert.Equal(t, 10.0, breakdown[1].Adjustment)
	assert.Equal(t, 110.0, breakdown[1].PriceSoFar)
}

func TestEvaluateRules_RoundingAtExit(t *testing.T) {
	rules := []*models.PricingRule{
		newTestRule(models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 100, ""),
		newTestRule(models.RuleTypeWeekend, 10, models.AdjustmentTypePercent, 12.346, ""),
	}
	pctx := boardingContext()
	pctx.DropOffDay = utils.ToPtr("2026-08-29") // Saturday

	price, breakdown := evaluateRules(rules, pctx)
	require.Len(t, breakdown, 2)
	// 100 * 1.12346 = 112.346, rounded to cents at the exit
	assert.Equal(t, 112.35, price)
	// Breakdown keeps the unrounded running value
	assert.InDelta(t, 112.346, breakdown[1].PriceSoFar, 1e-9)
}

func TestEvaluateRules_OrderIsDeterministic(t *testing.T) {
	rules := []*models.PricingRule{
		newTestRule(models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 100, ""),
		newTestRule(models.RuleTypeWeekend, 10, models.AdjustmentTypePercent, 10, ""),
		newTestRule(models.RuleTypeMultiDog, 20, models.AdjustmentTypeFlat, 15, ""),
	}
	pctx := boardingContext()
	pctx.DropOffDay = utils.ToPtr("2026-08-29") // Saturday
	pctx.DogIDs = []string{"dog-1", "dog-2"}

	first, firstBreakdown := evaluateRules(rules, pctx)
	second, secondBreakdown := evaluateRules(rules, pctx)

	assert.Equal(t, first, second)
	assert.Equal(t, firstBreakdown, secondBreakdown)

	// Percent before flat: (100 * 1.10) + 15, not (100 + 15) * 1.10
	assert.Equal(t, 125.0, first)
}

func TestEvaluateRules_WeekendPredicate(t *testing.T) {
	tests := []struct {
		name     string
		ruleData string
		dropOff  string
		pickUp   string
		applies  bool
	}{
		{"saturday drop-off matches default days", "", "2026-08-29", "2026-08-31", true},
		{"sunday pick-up matches default days", "", "2026-08-27", "2026-08-30", true},
		{"midweek stay does not match", "", "2026-08-24", "2026-08-27", false},
		{"custom days honoured", `{"days": [5]}`, "2026-08-28", "2026-08-31", true}, // Friday
		{"custom days exclude saturday", `{"days": [5]}`, "2026-08-29", "2026-08-31", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := newTestRule(models.RuleTypeWeekend, 10, models.AdjustmentTypePercent, 20, tt.ruleData)
			params, err := rule.Params()
			require.NoError(t, err)

			pctx := &PricingContext{
				TenantID:    1,
				ServiceType: models.ServiceTypeBoarding,
				DropOffDay:  utils.ToPtr(tt.dropOff),
				PickUpDay:   utils.ToPtr(tt.pickUp),
				DogIDs:      []string{"dog-1"},
			}
			applies, err := ruleApplies(rule, params, pctx)
			require.NoError(t, err)
			assert.Equal(t, tt.applies, applies)
		})
	}
}

func TestEvaluateRules_LengthOfStayPredicate(t *testing.T) {
	tests := []struct {
		name     string
		ruleData string
		dropOff  string
		pickUp   string
		applies  bool
	}{
		{"three nights meets default minimum", "", "2026-08-28", "2026-08-31", true},
		{"same-day stay is zero nights", "", "2026-08-28", "2026-08-28", false},
		{"seven nights meets min_nights 7", `{"min_nights": 7}`, "2026-08-24", "2026-08-31", true},
		{"six nights misses min_nights 7", `{"min_nights": 7}`, "2026-08-25", "2026-08-31", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := newTestRule(models.RuleTypeLengthOfStay, 10, models.AdjustmentTypePercent, -10, tt.ruleData)
			params, err := rule.Params()
			require.NoError(t, err)

			pctx := &PricingContext{
				TenantID:    1,
				ServiceType: models.ServiceTypeBoarding,
				DropOffDay:  utils.ToPtr(tt.dropOff),
				PickUpDay:   utils.ToPtr(tt.pickUp),
				DogIDs:      []string{"dog-1"},
			}
			applies, err := ruleApplies(rule, params, pctx)
			require.NoError(t, err)
			assert.Equal(t, tt.applies, applies)
		})
	}
}

func TestEvaluateRules_InvalidDateIsSoftFailure(t *testing.T) {
	rules := []*models.PricingRule{
		newTestRule(models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 50, ""),
		newTestRule(models.RuleTypeWeekend, 10, models.AdjustmentTypePercent, 20, ""),
		newTestRule(models.RuleTypeMultiDog, 20, models.AdjustmentTypeFlat, 15, ""),
	}
	pctx := &PricingContext{
		TenantID:    1,
		ServiceType: models.ServiceTypeBoarding,
		DropOffDay:  utils.ToPtr("not-a-date"),
		PickUpDay:   utils.ToPtr("2026-08-31"),
		DogIDs:      []string{"dog-1", "dog-2"},
	}

	price, breakdown := evaluateRules(rules, pctx)

	// Base applies, weekend fails softly, multi_dog still runs.
	require.Len(t, breakdown, 3)
	assert.Equal(t, 65.0, price)
	assert.Equal(t, 0.0, breakdown[1].Adjustment)
	assert.Equal(t, 50.0, breakdown[1].PriceSoFar)
	assert.Contains(t, breakdown[1].Description, "not applied")
}

func TestEvaluateRules_MalformedRuleDataIsSoftFailure(t *testing.T) {
	rules := []*models.PricingRule{
		newTestRule(models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 50, ""),
		newTestRule(models.RuleTypeMultiDog, 10, models.AdjustmentTypeFlat, 15, `{"min_dogs": "two"}`),
	}
	pctx := boardingContext()
	pctx.DogIDs = []string{"dog-1", "dog-2"}

	price, breakdown := evaluateRules(rules, pctx)
	require.Len(t, breakdown, 2)
	assert.Equal(t, 50.0, price)
	assert.Equal(t, 0.0, breakdown[1].Adjustment)
}

func TestEvaluateRules_UnknownRuleTypeSkippedSilently(t *testing.T) {
	rules := []*models.PricingRule{
		newTestRule(models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 50, ""),
		newTestRule("holiday_surge", 10, models.AdjustmentTypePercent, 50, ""),
	}
	pctx := boardingContext()

	price, breakdown := evaluateRules(rules, pctx)
	require.Len(t, breakdown, 1)
	assert.Equal(t, 50.0, price)
}

func TestEvaluateRules_BaseOverridesRunningPrice(t *testing.T) {
	// A base rule sets the price outright even if something ran before it.
	rules := []*models.PricingRule{
		newTestRule(models.RuleTypeMultiDog, 0, models.AdjustmentTypeFlat, 15, ""),
		newTestRule(models.RuleTypeBase, 10, models.AdjustmentTypeFlat, 50, ""),
	}
	pctx := boardingContext()
	pctx.DogIDs = []string{"dog-1", "dog-2"}

	price, breakdown := evaluateRules(rules, pctx)
	require.Len(t, breakdown, 2)
	assert.Equal(t, 50.0, price)
	assert.Equal(t, 50.0, breakdown[1].PriceSoFar)
}
