// Package models contains domain entities and business models for the pricing platform
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service types a price can be computed for. The service type selects the
// required context fields and the candidate rule set.
const (
	ServiceTypeBoarding = "boarding"
	ServiceTypeDaycare  = "daycare"
	ServiceTypeWalk     = "walk"
)

// Rule types select which matching predicate applies during evaluation.
const (
	RuleTypeBase         = "base"
	RuleTypeMultiDog     = "multi_dog"
	RuleTypeWeekend      = "weekend"
	RuleTypeLengthOfStay = "length_of_stay"
)

// Adjustment types. A base rule sets the running price outright regardless
// of its adjustment type; every other rule either adds a flat amount or a
// percentage of the running price.
const (
	AdjustmentTypeFlat    = "flat"
	AdjustmentTypePercent = "percent"
)

// KnownServiceTypes lists the accepted service type tags.
var KnownServiceTypes = []string{ServiceTypeBoarding, ServiceTypeDaycare, ServiceTypeWalk}

// PricingRule is a tenant-scoped, priority-ordered pricing adjustment.
// Rules for one (tenant, service_type) pair are folded in ascending priority
// order; the order is load-bearing because percent rules apply to the
// running price.
// Table: pricing_rules
type PricingRule struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_pricing_rules_uuid" json:"uuid"`
	TenantID        uint            `gorm:"not null;index:idx_pricing_rules_tenant_service,priority:1" json:"tenant_id"`
	Tenant          *Tenant         `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	ServiceType     string          `gorm:"size:32;not null;index:idx_pricing_rules_tenant_service,priority:2" json:"service_type"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Description     *string         `gorm:"type:text" json:"description,omitempty"`
	RuleType        string          `gorm:"size:64;not null" json:"rule_type"`
	RuleData        json.RawMessage `gorm:"type:jsonb" json:"rule_data,omitempty"`
	Priority        int             `gorm:"not null;index:idx_pricing_rules_priority" json:"priority"`
	AdjustmentType  string          `gorm:"size:16;not null" json:"adjustment_type"`
	AdjustmentValue float64         `gorm:"type:numeric(12,4);not null" json:"adjustment_value"`
	Enabled         *bool           `gorm:"default:true;index:idx_pricing_rules_enabled" json:"enabled"`
	CreatedAt       time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (PricingRule) TableName() string {
	return "pricing_rules"
}

// RuleParams is the decoded form of a rule's rule_data parameter bag.
// Fields are pointers so "unspecified" is distinguishable from zero;
// defaults are applied by the evaluator's predicates.
type RuleParams struct {
	MinDogs   *int  `json:"min_dogs,omitempty"`
	Days      []int `json:"days,omitempty"`
	MinNights *int  `json:"min_nights,omitempty"`
}

// Params decodes rule_data once so the fold works on typed parameters
// instead of loose property access. An empty bag is valid for every rule
// type (predicates fall back to their documented defaults).
func (r *PricingRule) Params() (*RuleParams, error) {
	params := &RuleParams{}
	if len(r.RuleData) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(r.RuleData, params); err != nil {
		return nil, fmt.Errorf("malformed rule_data for rule %s: %w", r.UUID, err)
	}
	for _, d := range params.Days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("malformed rule_data for rule %s: day %d out of range", r.UUID, d)
		}
	}
	return params, nil
}

// IsEnabled reports whether the rule participates in evaluation.
func (r *PricingRule) IsEnabled() bool {
	return r.Enabled != nil && *r.Enabled
}

// IsKnownServiceType reports whether the tag is one of the bookable
// offerings.
func IsKnownServiceType(serviceType string) bool {
	for _, st := range KnownServiceTypes {
		if st == serviceType {
			return true
		}
	}
	return false
}

// PricingRuleFilter represents filter criteria for pricing rule queries
type PricingRuleFilter struct {
	TenantID    *uint      `json:"tenant_id,omitempty"`
	ServiceType *string    `json:"service_type,omitempty"`
	RuleType    *string    `json:"rule_type,omitempty"`
	Enabled     *bool      `json:"enabled,omitempty"`
	UUID        *uuid.UUID `json:"uuid,omitempty"`
}
