package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/enums"
)

// TransactionStatusEvent is an append-only history row; one per status change.
type TransactionStatusEvent struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID string                   `gorm:"column:transaction_id;not null;index"`
	FromStatus    *enums.TransactionStatus `gorm:"column:from_status;type:transaction_status"`
	ToStatus      enums.TransactionStatus  `gorm:"column:to_status;type:transaction_status;not null"`
	Source        enums.StatusSource       `gorm:"column:source;type:status_source;not null"`
	Note          *string                  `gorm:"column:note"`
	OccurredAt    time.Time                `gorm:"column:occurred_at;not null"`
}

func (e *TransactionStatusEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
