package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fetchwork/pricing-api/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PricingRuleRepositoryImpl implements PricingRuleRepository
type PricingRuleRepositoryImpl struct {
	*BaseRepository[models.PricingRule, models.PricingRuleFilter]
}

// NewPricingRuleRepository creates a new repository for pricing rules
func NewPricingRuleRepository(db *gorm.DB) PricingRuleRepository {
	return &PricingRuleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PricingRule, models.PricingRuleFilter](db),
	}
}

// ListCandidates returns the rules that participate in one evaluation:
// enabled rules of the tenant for the given service type, ascending by
// priority. Ties on priority are broken by id so the order is stable.
func (r *PricingRuleRepositoryImpl) ListCandidates(ctx context.Context, tenantID uint, serviceType string) ([]*models.PricingRule, error) {
	db := r.getDB(ctx)

	var rules []*models.PricingRule
	err := db.
		Where("tenant_id = ? AND service_type = ? AND enabled = ?", tenantID, serviceType, true).
		Order("priority ASC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate rules for tenant %d: %w", tenantID, err)
	}

	return rules, nil
}

// ListByTenant returns all rules of a tenant (enabled or not), optionally
// narrowed to one service type, in evaluation order.
func (r *PricingRuleRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, serviceType string) ([]*models.PricingRule, error) {
	db := r.getDB(ctx)

	query := db.Where("tenant_id = ?", tenantID)
	if serviceType != "" {
		query = query.Where("service_type = ?", serviceType)
	}

	var rules []*models.PricingRule
	if err := query.Order("service_type ASC, priority ASC, id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list rules for tenant %d: %w", tenantID, err)
	}
	return rules, nil
}

// ByUUID retrieves a pricing rule by its public UUID.
func (r *PricingRuleRepositoryImpl) ByUUID(ctx context.Context, ruleUUID uuid.UUID) (*models.PricingRule, error) {
	db := r.getDB(ctx)

	var rule models.PricingRule
	err := db.Where("uuid = ?", ruleUUID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// Delete removes a pricing rule permanently.
func (r *PricingRuleRepositoryImpl) Delete(ctx context.Context, ruleID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(&models.PricingRule{}, ruleID).Error
	if err != nil {
		return fmt.Errorf("failed to delete pricing rule %d: %w", ruleID, err)
	}
	return nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PricingRuleRepositoryImpl) applyFilter(db *gorm.DB, filter models.PricingRuleFilter) *gorm.DB {
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.ServiceType != nil {
		db = db.Where("service_type = ?", *filter.ServiceType)
	}
	if filter.RuleType != nil {
		db = db.Where("rule_type = ?", *filter.RuleType)
	}
	if filter.Enabled != nil {
		db = db.Where("enabled = ?", *filter.Enabled)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	return db
}

// ByFilter retrieves pricing rules based on filter criteria.
func (r *PricingRuleRepositoryImpl) ByFilter(ctx context.Context, filter models.PricingRuleFilter, orderBy string, limit, offset int) ([]*models.PricingRule, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PricingRule{}), filter)

	if orderBy == "" {
		orderBy = "priority ASC, id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rules []*models.PricingRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Count returns the number of pricing rules matching the filter.
func (r *PricingRuleRepositoryImpl) Count(ctx context.Context, filter models.PricingRuleFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PricingRule{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any pricing rule matching the filter exists.
func (r *PricingRuleRepositoryImpl) Exists(ctx context.Context, filter models.PricingRuleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
