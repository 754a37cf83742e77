package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingRuleParams(t *testing.T) {
	tests := []struct {
		name     string
		ruleData string
		wantErr  bool
		check    func(t *testing.T, params *RuleParams)
	}{
		{
			name:     "empty rule data yields empty params",
			ruleData: "",
			check: func(t *testing.T, params *RuleParams) {
				assert.Nil(t, params.MinDogs)
				assert.Nil(t, params.Days)
				assert.Nil(t, params.MinNights)
			},
		},
		{
			name:     "empty object yields empty params",
			ruleData: `{}`,
			check: func(t *testing.T, params *RuleParams) {
				assert.Nil(t, params.MinDogs)
				assert.Nil(t, params.Days)
				assert.Nil(t, params.MinNights)
			},
		},
		{
			name:     "all fields decoded",
			ruleData: `{"min_dogs": 3, "days": [5, 6], "min_nights": 2}`,
			check: func(t *testing.T, params *RuleParams) {
				require.NotNil(t, params.MinDogs)
				assert.Equal(t, 3, *params.MinDogs)
				assert.Equal(t, []int{5, 6}, params.Days)
				require.NotNil(t, params.MinNights)
				assert.Equal(t, 2, *params.MinNights)
			},
		},
		{
			name:     "explicit zero is not unspecified",
			ruleData: `{"min_dogs": 0}`,
			check: func(t *testing.T, params *RuleParams) {
				require.NotNil(t, params.MinDogs)
				assert.Equal(t, 0, *params.MinDogs)
			},
		},
		{
			name:     "non-json rule data is an error",
			ruleData: `not json`,
			wantErr:  true,
		},
		{
			name:     "wrong field type is an error",
			ruleData: `{"min_nights": "two"}`,
			wantErr:  true,
		},
		{
			name:     "day above saturday is an error",
			ruleData: `{"days": [7]}`,
			wantErr:  true,
		},
		{
			name:     "negative day is an error",
			ruleData: `{"days": [-1]}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &PricingRule{UUID: uuid.New()}
			if tt.ruleData != "" {
				rule.RuleData = json.RawMessage(tt.ruleData)
			}

			params, err := rule.Params()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, params)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, params)
			if tt.check != nil {
				tt.check(t, params)
			}
		})
	}
}

func TestPricingRuleIsEnabled(t *testing.T) {
	enabled := true
	disabled := false

	assert.False(t, (&PricingRule{}).IsEnabled())
	assert.False(t, (&PricingRule{Enabled: &disabled}).IsEnabled())
	assert.True(t, (&PricingRule{Enabled: &enabled}).IsEnabled())
}

func TestIsKnownServiceType(t *testing.T) {
	assert.True(t, IsKnownServiceType(ServiceTypeBoarding))
	assert.True(t, IsKnownServiceType(ServiceTypeDaycare))
	assert.True(t, IsKnownServiceType(ServiceTypeWalk))
	assert.False(t, IsKnownServiceType("grooming"))
	assert.False(t, IsKnownServiceType(""))
	assert.False(t, IsKnownServiceType("Boarding"))
}
