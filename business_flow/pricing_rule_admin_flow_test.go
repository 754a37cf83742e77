package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/fetchwork/pricing-api/app/dto"
	"github.com/fetchwork/pricing-api/models"
	"github.com/fetchwork/pricing-api/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRuleRepo is an in-memory PricingRuleRepository for flow tests.
type stubRuleRepo struct {
	rules   []*models.PricingRule
	saved   []*models.PricingRule
	updated []*models.PricingRule
	deleted []uint
	listErr error
}

func (s *stubRuleRepo) ListCandidates(ctx context.Context, tenantID uint, serviceType string) ([]*models.PricingRule, error) {
	return s.ListByTenant(ctx, tenantID, serviceType)
}

func (s *stubRuleRepo) ListByTenant(_ context.Context, tenantID uint, serviceType string) ([]*models.PricingRule, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*models.PricingRule
	for _, rule := range s.rules {
		if rule.TenantID == tenantID && (serviceType == "" || rule.ServiceType == serviceType) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *stubRuleRepo) ByUUID(_ context.Context, ruleUUID uuid.UUID) (*models.PricingRule, error) {
	for _, rule := range s.rules {
		if rule.UUID == ruleUUID {
			return rule, nil
		}
	}
	return nil, nil
}

func (s *stubRuleRepo) Save(_ context.Context, rule *models.PricingRule) error {
	s.saved = append(s.saved, rule)
	s.rules = append(s.rules, rule)
	return nil
}

func (s *stubRuleRepo) Update(_ context.Context, rule *models.PricingRule) error {
	s.updated = append(s.updated, rule)
	return nil
}

func (s *stubRuleRepo) Delete(_ context.Context, ruleID uint) error {
	s.deleted = append(s.deleted, ruleID)
	return nil
}

func (s *stubRuleRepo) ByID(context.Context, uint) (*models.PricingRule, error) {
	return nil, nil
}

func (s *stubRuleRepo) ByFilter(context.Context, models.PricingRuleFilter, string, int, int) ([]*models.PricingRule, error) {
	return nil, nil
}

func (s *stubRuleRepo) SaveBatch(context.Context, []*models.PricingRule) error { return nil }

func (s *stubRuleRepo) Count(context.Context, models.PricingRuleFilter) (int64, error) {
	return 0, nil
}

func (s *stubRuleRepo) Exists(context.Context, models.PricingRuleFilter) (bool, error) {
	return false, nil
}

func placementRule(id uint, ruleType string, priority int, enabled bool) *models.PricingRule {
	return &models.PricingRule{
		ID:              id,
		TenantID:        1,
		ServiceType:     models.ServiceTypeBoarding,
		Name:            ruleType,
		RuleType:        ruleType,
		Priority:        priority,
		AdjustmentType:  models.AdjustmentTypeFlat,
		AdjustmentValue: 10,
		Enabled:         utils.ToPtr(enabled),
	}
}

func TestCheckBaseRulePlacement(t *testing.T) {
	tests := []struct {
		name      string
		existing  []*models.PricingRule
		candidate *models.PricingRule
		wantErr   error
	}{
		{
			name:      "first base rule is fine",
			existing:  nil,
			candidate: placementRule(0, models.RuleTypeBase, 0, true),
			wantErr:   nil,
		},
		{
			name: "second enabled base rule rejected",
			existing: []*models.PricingRule{
				placementRule(1, models.RuleTypeBase, 0, true),
			},
			candidate: placementRule(0, models.RuleTypeBase, 5, true),
			wantErr:   ErrDuplicateBaseRule,
		},
		{
			name: "disabled base does not block a new one",
			existing: []*models.PricingRule{
				placementRule(1, models.RuleTypeBase, 0, false),
			},
			candidate: placementRule(0, models.RuleTypeBase, 0, true),
			wantErr:   nil,
		},
		{
			name: "base must sort before every other enabled rule",
			existing: []*models.PricingRule{
				placementRule(1, models.RuleTypeWeekend, 5, true),
			},
			candidate: placementRule(0, models.RuleTypeBase, 10, true),
			wantErr:   ErrBaseRuleNotFirst,
		},
		{
			name: "base below all other priorities is fine",
			existing: []*models.PricingRule{
				placementRule(1, models.RuleTypeWeekend, 5, true),
				placementRule(2, models.RuleTypeMultiDog, 10, true),
			},
			candidate: placementRule(0, models.RuleTypeBase, 0, true),
			wantErr:   nil,
		},
		{
			name: "non-base rule may not sort before the base",
			existing: []*models.PricingRule{
				placementRule(1, models.RuleTypeBase, 5, true),
			},
			candidate: placementRule(0, models.RuleTypeWeekend, 5, true),
			wantErr:   ErrRuleBeforeBaseRule,
		},
		{
			name: "non-base rule after the base is fine",
			existing: []*models.PricingRule{
				placementRule(1, models.RuleTypeBase, 0, true),
			},
			candidate: placementRule(0, models.RuleTypeWeekend, 10, true),
			wantErr:   nil,
		},
		{
			name: "disabled candidate is never checked",
			existing: []*models.PricingRule{
				placementRule(1, models.RuleTypeBase, 5, true),
			},
			candidate: placementRule(0, models.RuleTypeBase, 10, false),
			wantErr:   nil,
		},
		{
			name: "update does not conflict with itself",
			existing: []*models.PricingRule{
				placementRule(7, models.RuleTypeBase, 0, true),
			},
			candidate: placementRule(7, models.RuleTypeBase, 0, true),
			wantErr:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBaseRulePlacement(tt.existing, tt.candidate)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	valid := func() *models.PricingRule {
		return &models.PricingRule{
			TenantID:        1,
			ServiceType:     models.ServiceTypeWalk,
			Name:            "walk base",
			RuleType:        models.RuleTypeBase,
			Priority:        0,
			AdjustmentType:  models.AdjustmentTypeFlat,
			AdjustmentValue: 25,
			Enabled:         utils.ToPtr(true),
		}
	}

	t.Run("valid rule passes", func(t *testing.T) {
		assert.NoError(t, validateRule(valid()))
	})

	t.Run("unknown service type rejected", func(t *testing.T) {
		rule := valid()
		rule.ServiceType = "grooming"
		assert.True(t, errors.Is(validateRule(rule), ErrUnknownServiceType))
	})

	t.Run("unknown rule type rejected", func(t *testing.T) {
		rule := valid()
		rule.RuleType = "holiday_surge"
		assert.True(t, errors.Is(validateRule(rule), ErrUnknownRuleType))
	})

	t.Run("unknown adjustment type rejected", func(t *testing.T) {
		rule := valid()
		rule.AdjustmentType = "multiplier"
		assert.True(t, errors.Is(validateRule(rule), ErrUnknownAdjustmentType))
	})

	t.Run("percent value out of range rejected", func(t *testing.T) {
		rule := valid()
		rule.AdjustmentType = models.AdjustmentTypePercent
		rule.AdjustmentValue = -150
		assert.True(t, errors.Is(validateRule(rule), ErrPercentValueOutOfRange))
	})

	t.Run("empty name rejected", func(t *testing.T) {
		rule := valid()
		rule.Name = ""
		assert.True(t, errors.Is(validateRule(rule), ErrRuleNameRequired))
	})

	t.Run("malformed rule data rejected", func(t *testing.T) {
		rule := valid()
		rule.RuleData = []byte(`{"min_dogs": "two"}`)
		assert.True(t, errors.Is(validateRule(rule), ErrMalformedRuleData))
	})

	t.Run("day out of range rejected", func(t *testing.T) {
		rule := valid()
		rule.RuleType = models.RuleTypeWeekend
		rule.RuleData = []byte(`{"days": [7]}`)
		assert.True(t, errors.Is(validateRule(rule), ErrMalformedRuleData))
	})
}

func TestCreateRule(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a valid rule with defaults", func(t *testing.T) {
		repo := &stubRuleRepo{}
		flow := NewPricingRuleAdminFlow(repo, nil, nil)

		resp, err := flow.CreateRule(ctx, &dto.CreatePricingRuleRequest{
			ServiceType:     models.ServiceTypeBoarding,
			Name:            "nightly rate",
			RuleType:        models.RuleTypeBase,
			Priority:        0,
			AdjustmentType:  models.AdjustmentTypeFlat,
			AdjustmentValue: 50,
		}, 1, nil)
		require.NoError(t, err)
		require.NotNil(t, resp)

		require.Len(t, repo.saved, 1)
		saved := repo.saved[0]
		assert.Equal(t, uint(1), saved.TenantID)
		assert.NotEqual(t, uuid.Nil, saved.UUID)
		assert.True(t, saved.IsEnabled())
		assert.Equal(t, saved.UUID.String(), resp.UUID)
	})

	t.Run("rejects a second enabled base rule", func(t *testing.T) {
		repo := &stubRuleRepo{rules: []*models.PricingRule{
			{
				ID:             1,
				UUID:           uuid.New(),
				TenantID:       1,
				ServiceType:    models.ServiceTypeBoarding,
				Name:           "existing base",
				RuleType:       models.RuleTypeBase,
				Priority:       0,
				AdjustmentType: models.AdjustmentTypeFlat,
				Enabled:        utils.ToPtr(true),
			},
		}}
		flow := NewPricingRuleAdminFlow(repo, nil, nil)

		_, err := flow.CreateRule(ctx, &dto.CreatePricingRuleRequest{
			ServiceType:     models.ServiceTypeBoarding,
			Name:            "second base",
			RuleType:        models.RuleTypeBase,
			Priority:        5,
			AdjustmentType:  models.AdjustmentTypeFlat,
			AdjustmentValue: 60,
		}, 1, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateBaseRule))
		assert.Empty(t, repo.saved)
	})

	t.Run("store failure surfaces as fetch error", func(t *testing.T) {
		repo := &stubRuleRepo{listErr: errors.New("connection refused")}
		flow := NewPricingRuleAdminFlow(repo, nil, nil)

		_, err := flow.CreateRule(ctx, &dto.CreatePricingRuleRequest{
			ServiceType:     models.ServiceTypeWalk,
			Name:            "walk base",
			RuleType:        models.RuleTypeBase,
			AdjustmentType:  models.AdjustmentTypeFlat,
			AdjustmentValue: 20,
		}, 1, nil)
		require.Error(t, err)
		assert.True(t, IsRuleFetchFailed(err))
	})
}

func TestUpdateRule(t *testing.T) {
	ctx := context.Background()

	seed := func() (*stubRuleRepo, *models.PricingRule) {
		rule := &models.PricingRule{
			ID:              3,
			UUID:            uuid.New(),
			TenantID:        1,
			ServiceType:     models.ServiceTypeDaycare,
			Name:            "daycare base",
			RuleType:        models.RuleTypeBase,
			Priority:        0,
			AdjustmentType:  models.AdjustmentTypeFlat,
			AdjustmentValue: 30,
			Enabled:         utils.ToPtr(true),
		}
		return &stubRuleRepo{rules: []*models.PricingRule{rule}}, rule
	}

	t.Run("applies partial update", func(t *testing.T) {
		repo, rule := seed()
		flow := NewPricingRuleAdminFlow(repo, nil, nil)

		newValue := 35.0
		resp, err := flow.UpdateRule(ctx, rule.UUID, &dto.UpdatePricingRuleRequest{
			AdjustmentValue: &newValue,
		}, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, 35.0, resp.AdjustmentValue)
		assert.Equal(t, "daycare base", resp.Name)
		require.Len(t, repo.updated, 1)
	})

	t.Run("unknown uuid is not found", func(t *testing.T) {
		repo, _ := seed()
		flow := NewPricingRuleAdminFlow(repo, nil, nil)

		_, err := flow.UpdateRule(ctx, uuid.New(), &dto.UpdatePricingRuleRequest{}, 1, nil)
		require.Error(t, err)
		assert.True(t, IsRuleNotFound(err))
	})

	t.Run("another tenant's rule reads as not found", func(t *testing.T) {
		repo, rule := seed()
		flow := NewPricingRuleAdminFlow(repo, nil, nil)

		_, err := flow.UpdateRule(ctx, rule.UUID, &dto.UpdatePricingRuleRequest{}, 2, nil)
		require.Error(t, err)
		assert.True(t, IsRuleAccessDenied(err))
		assert.Empty(t, repo.updated)
	})
}

func TestDeleteRule(t *testing.T) {
	ctx := context.Background()

	rule := &models.PricingRule{
		ID:             9,
		UUID:           uuid.New(),
		TenantID:       1,
		ServiceType:    models.ServiceTypeWalk,
		Name:           "walk base",
		RuleType:       models.RuleTypeBase,
		AdjustmentType: models.AdjustmentTypeFlat,
		Enabled:        utils.ToPtr(true),
	}
	repo := &stubRuleRepo{rules: []*models.PricingRule{rule}}
	flow := NewPricingRuleAdminFlow(repo, nil, nil)

	require.NoError(t, flow.DeleteRule(ctx, rule.UUID, 1, nil))
	assert.Equal(t, []uint{9}, repo.deleted)

	err := flow.DeleteRule(ctx, uuid.New(), 1, nil)
	require.Error(t, err)
	assert.True(t, IsRuleNotFound(err))
}

func TestListRules(t *testing.T) {
	ctx := context.Background()

	repo := &stubRuleRepo{rules: []*models.PricingRule{
		{
			ID: 1, UUID: uuid.New(), TenantID: 1,
			ServiceType: models.ServiceTypeBoarding, Name: "base",
			RuleType: models.RuleTypeBase, AdjustmentType: models.AdjustmentTypeFlat,
			Enabled: utils.ToPtr(true),
		},
		{
			ID: 2, UUID: uuid.New(), TenantID: 1,
			ServiceType: models.ServiceTypeWalk, Name: "walk base",
			RuleType: models.RuleTypeBase, AdjustmentType: models.AdjustmentTypeFlat,
			Enabled: utils.ToPtr(true),
		},
		{
			ID: 3, UUID: uuid.New(), TenantID: 2,
			ServiceType: models.ServiceTypeBoarding, Name: "other tenant",
			RuleType: models.RuleTypeBase, AdjustmentType: models.AdjustmentTypeFlat,
			Enabled: utils.ToPtr(true),
		},
	}}
	flow := NewPricingRuleAdminFlow(repo, nil, nil)

	all, err := flow.ListRules(ctx, &dto.ListPricingRulesRequest{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	boarding, err := flow.ListRules(ctx, &dto.ListPricingRulesRequest{ServiceType: models.ServiceTypeBoarding}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, boarding.Total)
	assert.Equal(t, "base", boarding.Rules[0].Name)
}
