package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

// Repository reads the catalogue tables.
type Repository interface {
	FindPackage(ctx context.Context, productID, packageID uuid.UUID) (*models.Product, *models.ProductPackage, error)
	ListActive(ctx context.Context, category string, limit int) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindPackage loads an active package together with its active product.
func (r *repository) FindPackage(ctx context.Context, productID, packageID uuid.UUID) (*models.Product, *models.ProductPackage, error) {
	var pkg models.ProductPackage
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ? AND is_active = ?", packageID, productID, true).
		First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product package not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product package")
	}

	var product models.Product
	err = r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", productID, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, &pkg, nil
}

func (r *repository) ListActive(ctx context.Context, category string, limit int) ([]models.Product, error) {
	q := r.db.WithContext(ctx).
		Preload("Packages", "is_active = ?", true).
		Where("is_active = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var rows []models.Product
	if err := q.Order("brand ASC, name ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, nil
}
