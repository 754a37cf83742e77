// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/fetchwork/pricing-api/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// PricingRuleReader is the narrow read capability the price evaluator
// depends on: the candidate rule set for one (tenant, service type) pair,
// enabled rules only, ascending priority. Nothing else about storage leaks
// into the evaluation.
type PricingRuleReader interface {
	ListCandidates(ctx context.Context, tenantID uint, serviceType string) ([]*models.PricingRule, error)
}

// PricingRuleRepository defines operations for pricing rules
type PricingRuleRepository interface {
	Repository[models.PricingRule, models.PricingRuleFilter]
	PricingRuleReader
	ByUUID(ctx context.Context, ruleUUID uuid.UUID) (*models.PricingRule, error)
	ListByTenant(ctx context.Context, tenantID uint, serviceType string) ([]*models.PricingRule, error)
	Update(ctx context.Context, rule *models.PricingRule) error
	Delete(ctx context.Context, ruleID uint) error
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByEmail(ctx context.Context, email string) (*models.Tenant, error)
	ByUUID(ctx context.Context, tenantUUID uuid.UUID) (*models.Tenant, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByTenant(ctx context.Context, tenantID uint, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
