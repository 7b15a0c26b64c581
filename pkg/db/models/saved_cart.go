package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/types"
)

// SavedCart is a named copy of a cart a user parked for later.
type SavedCart struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Name      string                   `gorm:"column:name;not null"`
	Items     []types.CartLineSnapshot `gorm:"column:items;type:jsonb;serializer:json;not null"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (s *SavedCart) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
