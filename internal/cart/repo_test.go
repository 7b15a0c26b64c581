package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/pkg/db/dbtest"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

func TestSaveSnapshotVersionGuard(t *testing.T) {
	conn := dbtest.Open(t, &models.Cart{}, &models.CartItem{})
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()
	cartID := uuid.New()

	item := func(qty int) []Item {
		return []Item{{ID: uuid.New(), ProductID: uuid.New(), PackageID: uuid.New(), Package: packageAt(uuid.New(), "100"), Quantity: qty, AddedAt: fixedNow, UpdatedAt: fixedNow}}
	}

	applied, err := repo.SaveSnapshot(ctx, Snapshot{CartID: cartID, UserID: userID, Version: 2, Items: item(2), TakenAt: fixedNow})
	if err != nil || !applied {
		t.Fatalf("initial save: applied=%v err=%v", applied, err)
	}

	applied, err = repo.SaveSnapshot(ctx, Snapshot{CartID: cartID, UserID: userID, Version: 2, Items: item(9), TakenAt: fixedNow})
	if err != nil {
		t.Fatalf("equal version save: %v", err)
	}
	if applied {
		t.Fatal("expected equal version to be rejected")
	}

	applied, err = repo.SaveSnapshot(ctx, Snapshot{CartID: cartID, UserID: userID, Version: 3, Notes: "gate B", Items: item(7), TakenAt: fixedNow})
	if err != nil || !applied {
		t.Fatalf("newer save: applied=%v err=%v", applied, err)
	}

	record, err := repo.FindByUser(ctx, userID)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if record.Version != 3 {
		t.Fatalf("expected version 3, got %d", record.Version)
	}
	if len(record.Items) != 1 || record.Items[0].Quantity != 7 {
		t.Fatalf("expected items replaced, got %+v", record.Items)
	}
	if record.Notes == nil || *record.Notes != "gate B" {
		t.Fatalf("expected notes stored, got %v", record.Notes)
	}
}

func TestFindByUserMissing(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.Cart{}, &models.CartItem{}))

	_, err := repo.FindByUser(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSavedCartsScopedToUser(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.SavedCart{}))
	ctx := context.Background()
	owner := uuid.New()

	saved := &models.SavedCart{UserID: owner, Name: "Workshop", Items: []types.CartLineSnapshot{}}
	if err := repo.CreateSaved(ctx, saved); err != nil {
		t.Fatalf("CreateSaved: %v", err)
	}

	if _, err := repo.FindSaved(ctx, uuid.New(), saved.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected other user lookup to be not found, got %v", err)
	}
	deleted, err := repo.DeleteSaved(ctx, uuid.New(), saved.ID)
	if err != nil || deleted {
		t.Fatalf("expected foreign delete to be a no-op: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.DeleteSaved(ctx, owner, saved.ID)
	if err != nil || !deleted {
		t.Fatalf("expected owner delete: deleted=%v err=%v", deleted, err)
	}
}

func TestKeyedMutexReleases(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("user:b", "user:a", "user:a")
	unlock()
	unlock = k.Lock("user:a")
	unlock()
	if len(k.locks) != 0 {
		t.Fatalf("expected entries released, got %d", len(k.locks))
	}
}
