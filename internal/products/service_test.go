package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/db/dbtest"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

func seedProduct(t *testing.T, conn *gorm.DB, active bool) (*models.Product, *models.ProductPackage) {
	t.Helper()
	grade := "15W-40"
	product := &models.Product{
		Name:     "Rimula R4 X",
		Brand:    "Shell",
		Category: "engine-oil",
		Grade:    &grade,
		IsActive: true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	pkg := &models.ProductPackage{
		ProductID: product.ID,
		SKU:       "RIM-R4X-5L-" + uuid.NewString()[:6],
		Size:      decimal.NewFromInt(5),
		Unit:      "L",
		Price:     decimal.RequireFromString("3450.00"),
		WeightKG:  decimal.RequireFromString("4.6"),
		IsActive:  active,
	}
	if err := conn.Create(pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}
	return product, pkg
}

func TestGetSnapshotReturnsActivePackage(t *testing.T) {
	conn := dbtest.Open(t, &models.Product{}, &models.ProductPackage{})
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	product, pkg := seedProduct(t, conn, true)

	ps, pks, err := svc.GetSnapshot(context.Background(), product.ID, pkg.ID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if ps.Name != "Rimula R4 X" || ps.Grade == nil || *ps.Grade != "15W-40" {
		t.Fatalf("unexpected product snapshot %+v", ps)
	}
	if !pks.Price.Equal(decimal.NewFromInt(3450)) || pks.Unit != "L" {
		t.Fatalf("unexpected package snapshot %+v", pks)
	}
}

func TestGetSnapshotHidesInactiveAndMismatchedPackages(t *testing.T) {
	conn := dbtest.Open(t, &models.Product{}, &models.ProductPackage{})
	svc, _ := NewService(NewRepository(conn))
	product, inactive := seedProduct(t, conn, false)

	_, _, err := svc.GetSnapshot(context.Background(), product.ID, inactive.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for inactive package, got %v", err)
	}

	other, active := seedProduct(t, conn, true)
	_, _, err = svc.GetSnapshot(context.Background(), product.ID, active.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for package of %s, got %v", other.ID, err)
	}
}

func TestListCatalogOnlyShowsActivePackages(t *testing.T) {
	conn := dbtest.Open(t, &models.Product{}, &models.ProductPackage{})
	svc, _ := NewService(NewRepository(conn))
	product, _ := seedProduct(t, conn, true)
	hidden := &models.ProductPackage{
		ProductID: product.ID,
		SKU:       "RIM-R4X-208L",
		Size:      decimal.NewFromInt(208),
		Unit:      "L",
		Price:     decimal.NewFromInt(120000),
		IsActive:  false,
	}
	if err := conn.Create(hidden).Error; err != nil {
		t.Fatalf("create hidden package: %v", err)
	}

	items, err := svc.ListCatalog(context.Background(), "engine-oil", 0)
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if len(items) != 1 || len(items[0].Packages) != 1 {
		t.Fatalf("unexpected catalog %+v", items)
	}
}
