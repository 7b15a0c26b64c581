package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/enums"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// Order is created once per completed checkout.
type Order struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	CompanyID     *uuid.UUID               `gorm:"column:company_id;type:uuid"`
	CartID        uuid.UUID                `gorm:"column:cart_id;type:uuid;not null"`
	DraftID       uuid.UUID                `gorm:"column:draft_id;type:uuid;not null;uniqueIndex:orders_draft_id_key"`
	TransactionID string                   `gorm:"column:transaction_id;not null"`
	Status        enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'paid'"`
	Items         []types.CartLineSnapshot `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Shipping      types.ShippingDetails    `gorm:"column:shipping;type:jsonb;serializer:json;not null"`
	Subtotal      decimal.Decimal          `gorm:"column:subtotal;type:numeric(14,2);not null"`
	Tax           decimal.Decimal          `gorm:"column:tax;type:numeric(14,2);not null"`
	ShippingFee   decimal.Decimal          `gorm:"column:shipping_fee;type:numeric(14,2);not null"`
	Discount      decimal.Decimal          `gorm:"column:discount;type:numeric(14,2);not null"`
	Total         decimal.Decimal          `gorm:"column:total;type:numeric(14,2);not null"`
	Currency      enums.Currency           `gorm:"column:currency;not null"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
