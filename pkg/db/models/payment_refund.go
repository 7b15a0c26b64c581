package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lubrihub/storefront-backend/pkg/enums"
)

// PaymentRefund records a refund requested against a PaymentTransaction.
type PaymentRefund struct {
	RefundID      string             `gorm:"column:refund_id;primaryKey"`
	TransactionID string             `gorm:"column:transaction_id;not null;index"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency      enums.Currency     `gorm:"column:currency;not null"`
	Reason        *string            `gorm:"column:reason"`
	Reference     *string            `gorm:"column:reference"`
	Status        enums.RefundStatus `gorm:"column:status;type:refund_status;not null;default:'pending'"`
	CompletedAt   *time.Time         `gorm:"column:completed_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
