package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/enums"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// CheckoutDraft persists checkout progress so a reload or a second device
// resumes at the same step.
type CheckoutDraft struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	CartID          uuid.UUID                 `gorm:"column:cart_id;type:uuid;not null;index"`
	UserID          uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	Step            enums.CheckoutStep        `gorm:"column:step;type:checkout_step;not null;default:'shipping'"`
	Status          enums.CheckoutDraftStatus `gorm:"column:status;type:checkout_draft_status;not null;default:'open'"`
	Shipping        *types.ShippingDetails    `gorm:"column:shipping;type:jsonb;serializer:json"`
	PaymentProvider *enums.PaymentProvider    `gorm:"column:payment_provider;type:payment_provider"`
	TransactionID   *string                   `gorm:"column:transaction_id"`
	CartSnapshot    *types.CartSnapshot       `gorm:"column:cart_snapshot;type:jsonb;serializer:json"`
	OrderID         *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	ExpiresAt       time.Time                 `gorm:"column:expires_at;not null"`
	CompletedAt     *time.Time                `gorm:"column:completed_at"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *CheckoutDraft) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
