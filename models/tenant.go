package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a dog-walking/boarding business on the platform. Every pricing
// rule and every price preview is scoped to exactly one tenant.
// Table: tenants
type Tenant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenants_uuid" json:"uuid"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Slug         string    `gorm:"size:255;not null;uniqueIndex:idx_tenants_slug" json:"slug"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:idx_tenants_email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsActive     *bool     `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// IsActiveTenant reports whether the account may log in and evaluate
// prices.
func (t *Tenant) IsActiveTenant() bool {
	return t.IsActive != nil && *t.IsActive
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Email    *string    `json:"email,omitempty"`
	Slug     *string    `json:"slug,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
