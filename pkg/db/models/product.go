package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a lubricant listing; purchasable units live in ProductPackage.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	Brand     string           `gorm:"column:brand;not null"`
	Category  string           `gorm:"column:category;not null"`
	Grade     *string          `gorm:"column:grade"`
	ImageURL  *string          `gorm:"column:image_url"`
	IsActive  bool             `gorm:"column:is_active;not null"`
	Packages  []ProductPackage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductPackage is one sellable size of a product (e.g. 5 L pail, 208 L drum).
type ProductPackage struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex:product_packages_sku_key"`
	Size      decimal.Decimal `gorm:"column:size;type:numeric(10,3);not null"`
	Unit      string          `gorm:"column:unit;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	WeightKG  decimal.Decimal `gorm:"column:weight_kg;type:numeric(10,3);not null;default:0"`
	IsActive  bool            `gorm:"column:is_active;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *ProductPackage) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
