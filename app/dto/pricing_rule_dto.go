package dto

import (
	"encoding/json"
	"time"
)

// CreatePricingRuleRequest creates one rule for the authenticated tenant.
type CreatePricingRuleRequest struct {
	ServiceType     string          `json:"service_type" validate:"required,oneof=boarding daycare walk"`
	Name            string          `json:"name" validate:"required,min=1,max=255"`
	Description     *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	RuleType        string          `json:"rule_type" validate:"required,oneof=base multi_dog weekend length_of_stay"`
	RuleData        json.RawMessage `json:"rule_data,omitempty"`
	Priority        int             `json:"priority" validate:"min=0"`
	AdjustmentType  string          `json:"adjustment_type" validate:"required,oneof=flat percent"`
	AdjustmentValue float64         `json:"adjustment_value"`
	Enabled         *bool           `json:"enabled,omitempty"`
}

// UpdatePricingRuleRequest carries partial updates; nil fields are left
// unchanged.
type UpdatePricingRuleRequest struct {
	Name            *string         `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description     *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	RuleData        json.RawMessage `json:"rule_data,omitempty"`
	Priority        *int            `json:"priority,omitempty" validate:"omitempty,min=0"`
	AdjustmentType  *string         `json:"adjustment_type,omitempty" validate:"omitempty,oneof=flat percent"`
	AdjustmentValue *float64        `json:"adjustment_value,omitempty"`
	Enabled         *bool           `json:"enabled,omitempty"`
}

// ListPricingRulesRequest filters the tenant's rule listing.
type ListPricingRulesRequest struct {
	ServiceType string `json:"service_type" query:"service_type" validate:"omitempty,oneof=boarding daycare walk"`
}

// PricingRuleResponse is the API shape of one rule.
type PricingRuleResponse struct {
	UUID            string          `json:"uuid"`
	ServiceType     string          `json:"service_type"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	RuleType        string          `json:"rule_type"`
	RuleData        json.RawMessage `json:"rule_data,omitempty"`
	Priority        int             `json:"priority"`
	AdjustmentType  string          `json:"adjustment_type"`
	AdjustmentValue float64         `json:"adjustment_value"`
	Enabled         bool            `json:"enabled"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ListPricingRulesResponse wraps the tenant's rules.
type ListPricingRulesResponse struct {
	Rules []PricingRuleResponse `json:"rules"`
	Total int                   `json:"total"`
}
