package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lubrihub/storefront-backend/pkg/enums"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// PaymentTransaction mirrors a transaction created at the payment gateway.
// TransactionID is the gateway's identifier.
type PaymentTransaction struct {
	TransactionID     string                  `gorm:"column:transaction_id;primaryKey"`
	Provider          enums.PaymentProvider   `gorm:"column:provider;type:payment_provider;not null"`
	Status            enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	RefundedAmount    decimal.Decimal         `gorm:"column:refunded_amount;type:numeric(14,2);not null;default:0"`
	Currency          enums.Currency          `gorm:"column:currency;not null;default:'KES'"`
	Reference         string                  `gorm:"column:reference;not null;uniqueIndex:payment_transactions_reference_key"`
	ProviderReference *string                 `gorm:"column:provider_reference"`
	CallbackURL       *string                 `gorm:"column:callback_url"`
	UserID            *uuid.UUID              `gorm:"column:user_id;type:uuid;index"`
	CartID            *uuid.UUID              `gorm:"column:cart_id;type:uuid"`
	Metadata          types.Metadata          `gorm:"column:metadata;type:jsonb;serializer:json"`
	FailureReason     *string                 `gorm:"column:failure_reason"`
	CompletedAt       *time.Time              `gorm:"column:completed_at"`
	FailedAt          *time.Time              `gorm:"column:failed_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
