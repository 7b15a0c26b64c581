package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lubrihub/storefront-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestPaymentMigrationContainsSchema(t *testing.T) {
	content := readMigration(t, "*_create_payment_tables.sql")

	checks := []string{
		"CREATE TYPE transaction_status AS ENUM",
		"'partially_refunded'",
		"CREATE TABLE IF NOT EXISTS payment_transactions",
		"CONSTRAINT payment_transactions_reference_key UNIQUE (reference)",
		"CONSTRAINT payment_transactions_refund_cap CHECK (refunded_amount <= amount)",
		"CREATE TABLE IF NOT EXISTS payment_refunds",
		"CREATE TABLE IF NOT EXISTS transaction_status_events",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartMigrationEnforcesOneLinePerPackage(t *testing.T) {
	content := readMigration(t, "*_create_cart_tables.sql")

	for _, sub := range []string{
		"CONSTRAINT carts_user_id_key UNIQUE (user_id)",
		"version     bigint NOT NULL DEFAULT 0",
		"CONSTRAINT cart_items_line_key UNIQUE (cart_id, product_id, package_id)",
		"CHECK (quantity >= 1)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCheckoutMigrationAllowsOneActiveDraftPerCart(t *testing.T) {
	content := readMigration(t, "*_create_checkout_tables.sql")
	if !strings.Contains(content, "CREATE UNIQUE INDEX IF NOT EXISTS idx_checkout_drafts_active_cart") {
		t.Fatalf("expected partial unique index on active drafts")
	}
	if !strings.Contains(content, "CONSTRAINT orders_draft_id_key UNIQUE (draft_id)") {
		t.Fatalf("expected one order per draft")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
