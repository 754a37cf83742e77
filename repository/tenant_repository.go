package repository

import (
	"context"
	"errors"

	"github.com/fetchwork/pricing-api/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements TenantRepository
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.TenantFilter]
}

// NewTenantRepository creates a new repository for tenants
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tenant, models.TenantFilter](db),
	}
}

// ByEmail retrieves a tenant by its admin email.
func (r *TenantRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Tenant, error) {
	db := r.getDB(ctx)

	var tenant models.Tenant
	err := db.Where("email = ?", email).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// ByUUID retrieves a tenant by its public UUID.
func (r *TenantRepositoryImpl) ByUUID(ctx context.Context, tenantUUID uuid.UUID) (*models.Tenant, error) {
	db := r.getDB(ctx)

	var tenant models.Tenant
	err := db.Where("uuid = ?", tenantUUID).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *TenantRepositoryImpl) applyFilter(db *gorm.DB, filter models.TenantFilter) *gorm.DB {
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Slug != nil {
		db = db.Where("slug = ?", *filter.Slug)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	return db
}

// ByFilter retrieves tenants based on filter criteria.
func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Tenant{}), filter)

	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var tenants []*models.Tenant
	if err := query.Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// Count returns the number of tenants matching the filter.
func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.TenantFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Tenant{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any tenant matching the filter exists.
func (r *TenantRepositoryImpl) Exists(ctx context.Context, filter models.TenantFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
