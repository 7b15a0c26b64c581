package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/db/dbtest"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
)

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	conn := dbtest.Open(t, &models.Cart{})
	client := FromGorm(conn)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Cart{UserID: uuid.New()}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := conn.Model(&models.Cart{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Cart{UserID: uuid.New()}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := conn.Model(&models.Cart{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	client := FromGorm(dbtest.Open(t, &models.Cart{}))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn := dbtest.Open(t, &models.Cart{})
	userID := uuid.New()
	if err := conn.Create(&models.Cart{UserID: userID}).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := conn.Create(&models.Cart{UserID: userID}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("connection reset"), "") {
		t.Fatal("unexpected match on unrelated error")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not match")
	}
}
