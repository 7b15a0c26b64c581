package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/pkg/db/models"
	"github.com/lubrihub/storefront-backend/pkg/pagination"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// Service exposes catalogue lookups to the cart engine and the API.
type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: repo}, nil
}

// GetSnapshot freezes the current catalogue data for a cart line. Inactive or
// missing rows are reported as not found.
func (s *Service) GetSnapshot(ctx context.Context, productID, packageID uuid.UUID) (types.ProductSnapshot, types.PackageSnapshot, error) {
	product, pkg, err := s.repo.FindPackage(ctx, productID, packageID)
	if err != nil {
		return types.ProductSnapshot{}, types.PackageSnapshot{}, err
	}
	return productSnapshot(*product), packageSnapshot(*pkg), nil
}

// CatalogItem is a product with its purchasable packages.
type CatalogItem struct {
	Product  types.ProductSnapshot   `json:"product"`
	Packages []types.PackageSnapshot `json:"packages"`
}

func (s *Service) ListCatalog(ctx context.Context, category string, limit int) ([]CatalogItem, error) {
	rows, err := s.repo.ListActive(ctx, strings.TrimSpace(category), pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]CatalogItem, 0, len(rows))
	for _, row := range rows {
		item := CatalogItem{Product: productSnapshot(row), Packages: make([]types.PackageSnapshot, 0, len(row.Packages))}
		for _, pkg := range row.Packages {
			item.Packages = append(item.Packages, packageSnapshot(pkg))
		}
		out = append(out, item)
	}
	return out, nil
}

func productSnapshot(p models.Product) types.ProductSnapshot {
	return types.ProductSnapshot{
		ID:       p.ID.String(),
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Grade:    p.Grade,
		ImageURL: p.ImageURL,
	}
}

func packageSnapshot(p models.ProductPackage) types.PackageSnapshot {
	return types.PackageSnapshot{
		ID:       p.ID.String(),
		SKU:      p.SKU,
		Size:     p.Size,
		Unit:     p.Unit,
		Price:    p.Price.Round(2),
		WeightKG: p.WeightKG,
	}
}

