package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/pkg/types"
)

// CartItem persists one (product, package) line of a Cart together with the
// catalogue snapshot taken when it was added.
type CartItem struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID             `gorm:"column:cart_id;type:uuid;not null;index"`
	Position  int                   `gorm:"column:position;not null;default:0"`
	ProductID uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	PackageID uuid.UUID             `gorm:"column:package_id;type:uuid;not null"`
	Product   types.ProductSnapshot `gorm:"column:product;type:jsonb;serializer:json;not null"`
	Package   types.PackageSnapshot `gorm:"column:package;type:jsonb;serializer:json;not null"`
	Quantity  int                   `gorm:"column:quantity;not null"`
	AddedAt   time.Time             `gorm:"column:added_at;not null"`
	UpdatedAt time.Time             `gorm:"column:updated_at;not null"`
}
