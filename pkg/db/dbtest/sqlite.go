// Package dbtest opens throwaway SQLite databases for repository tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/db/models"
)

// AllModels lists every table the storefront owns, in dependency order.
func AllModels() []any {
	return []any{
		&models.Product{},
		&models.ProductPackage{},
		&models.Cart{},
		&models.CartItem{},
		&models.SavedCart{},
		&models.PaymentTransaction{},
		&models.PaymentRefund{},
		&models.TransactionStatusEvent{},
		&models.CheckoutDraft{},
		&models.Order{},
	}
}

// Open returns an isolated in-memory database with the given models migrated.
// With no models, every storefront table is created.
func Open(t *testing.T, dst ...any) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if len(dst) == 0 {
		dst = AllModels()
	}
	if err := conn.AutoMigrate(dst...); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
