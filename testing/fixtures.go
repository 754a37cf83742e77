// Package testing provides test utilities and database setup for testing the pricing service
package testing

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/fetchwork/pricing-api/models"
	"github.com/fetchwork/pricing-api/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates an active tenant with the password "TestPass123!".
func (tf *TestFixtures) CreateTestTenant() (*models.Tenant, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := fmt.Sprintf("%06d", rand.Intn(900000)+100000)
	tenant := &models.Tenant{
		UUID:         uuid.New(),
		Name:         fmt.Sprintf("Happy Tails %s", suffix),
		Slug:         fmt.Sprintf("happy-tails-%s", suffix),
		Email:        fmt.Sprintf("owner.%s@example.com", suffix),
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return tenant, nil
}

// CreateTestRule creates one pricing rule for the tenant.
func (tf *TestFixtures) CreateTestRule(tenantID uint, serviceType, ruleType string, priority int, adjustmentType string, adjustmentValue float64, ruleData any) (*models.PricingRule, error) {
	var rawData json.RawMessage
	if ruleData != nil {
		payload, err := json.Marshal(ruleData)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rule data: %w", err)
		}
		rawData = payload
	}

	rule := &models.PricingRule{
		UUID:            uuid.New(),
		TenantID:        tenantID,
		ServiceType:     serviceType,
		Name:            fmt.Sprintf("%s %s rule", serviceType, ruleType),
		RuleType:        ruleType,
		RuleData:        rawData,
		Priority:        priority,
		AdjustmentType:  adjustmentType,
		AdjustmentValue: adjustmentValue,
		Enabled:         utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create test rule: %w", err)
	}
	return rule, nil
}

// CreateStandardBoardingRules seeds the usual boarding rule set: a base
// rate, a weekend surcharge, and a multi-dog fee.
func (tf *TestFixtures) CreateStandardBoardingRules(tenantID uint) ([]*models.PricingRule, error) {
	base, err := tf.CreateTestRule(tenantID, models.ServiceTypeBoarding, models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 50, nil)
	if err != nil {
		return nil, err
	}
	weekend, err := tf.CreateTestRule(tenantID, models.ServiceTypeBoarding, models.RuleTypeWeekend, 10, models.AdjustmentTypePercent, 20, map[string]any{"days": []int{0, 6}})
	if err != nil {
		return nil, err
	}
	multiDog, err := tf.CreateTestRule(tenantID, models.ServiceTypeBoarding, models.RuleTypeMultiDog, 20, models.AdjustmentTypeFlat, 15, map[string]any{"min_dogs": 2})
	if err != nil {
		return nil, err
	}
	return []*models.PricingRule{base, weekend, multiDog}, nil
}
