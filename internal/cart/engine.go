package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lubrihub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

const (
	maxLineQuantity = 9999
	maxNotesLength  = 1000
	maxSavedName    = 120

	// maxSaveAttempts bounds re-applying a mutation after another replica
	// wrote the same cart first.
	maxSaveAttempts = 5
)

type catalog interface {
	GetSnapshot(ctx context.Context, productID, packageID uuid.UUID) (types.ProductSnapshot, types.PackageSnapshot, error)
}

type localStore interface {
	Load(ctx context.Context, owner Owner) (*Cart, bool, error)
	Save(ctx context.Context, owner Owner, c *Cart, expected int64) error
	Delete(ctx context.Context, owner Owner) error
}

type syncQueue interface {
	Enqueue(snap Snapshot)
	Health(userID uuid.UUID) SyncHealth
	MarkSynced(userID uuid.UUID, version int64)
}

// EngineParams groups dependencies for the cart engine.
type EngineParams struct {
	Store   localStore
	Repo    Repository
	Catalog catalog
	Syncer  syncQueue
	Pricing Pricing
	Logger  *logger.Logger
	Now     func() time.Time
	NewID   func() uuid.UUID
}

// Engine owns cart state. Every mutation recomputes the summary, writes the
// local blob synchronously and, for signed-in users, queues a durable write.
type Engine struct {
	store   localStore
	repo    Repository
	catalog catalog
	syncer  syncQueue
	pricing Pricing
	logg    *logger.Logger
	now     func() time.Time
	newID   func() uuid.UUID

	locks *keyedMutex
	loads singleflight.Group
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, errors.New("local store is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if params.Syncer == nil {
		return nil, errors.New("syncer is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := params.NewID
	if newID == nil {
		newID = uuid.New
	}
	return &Engine{
		store:   params.Store,
		repo:    params.Repo,
		catalog: params.Catalog,
		syncer:  params.Syncer,
		pricing: params.Pricing,
		logg:    logg,
		now:     now,
		newID:   newID,
		locks:   newKeyedMutex(),
	}, nil
}

// AddItemInput describes a line to add. Quantity 0 means 1.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	PackageID uuid.UUID `json:"package_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

// Get returns the owner's cart, creating an empty one when none exists.
// Reads skip the owner lock; concurrent misses share one load.
func (e *Engine) Get(ctx context.Context, owner Owner) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return e.load(ctx, owner)
}

func (e *Engine) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*Cart, error) {
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.ProductID == uuid.Nil || input.PackageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id and package_id are required")
	}
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	product, pkg, err := e.catalog.GetSnapshot(ctx, input.ProductID, input.PackageID)
	if err != nil {
		return nil, err
	}

	return e.mutate(ctx, owner, func(c *Cart, now time.Time) (bool, error) {
		for i := range c.Items {
			if c.Items[i].ProductID == input.ProductID && c.Items[i].PackageID == input.PackageID {
				next := c.Items[i].Quantity + input.Quantity
				if next > maxLineQuantity {
					return false, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity per line is capped at %d", maxLineQuantity)
				}
				c.Items[i].Quantity = next
				c.Items[i].UpdatedAt = now
				return true, nil
			}
		}
		if input.Quantity > maxLineQuantity {
			return false, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity per line is capped at %d", maxLineQuantity)
		}
		c.Items = append(c.Items, Item{
			ID:        e.newID(),
			ProductID: input.ProductID,
			PackageID: input.PackageID,
			Product:   product,
			Package:   pkg,
			Quantity:  input.Quantity,
			AddedAt:   now,
			UpdatedAt: now,
		})
		return true, nil
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes the line. An
// unknown item id leaves the cart unchanged.
func (e *Engine) UpdateQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (*Cart, error) {
	if quantity > maxLineQuantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity per line is capped at %d", maxLineQuantity)
	}
	if quantity <= 0 {
		return e.RemoveItem(ctx, owner, itemID)
	}
	return e.mutate(ctx, owner, func(c *Cart, now time.Time) (bool, error) {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				if c.Items[i].Quantity == quantity {
					return false, nil
				}
				c.Items[i].Quantity = quantity
				c.Items[i].UpdatedAt = now
				return true, nil
			}
		}
		return false, nil
	})
}

func (e *Engine) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*Cart, error) {
	return e.mutate(ctx, owner, func(c *Cart, _ time.Time) (bool, error) {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	})
}

// Clear empties the cart but keeps its id and owner.
func (e *Engine) Clear(ctx context.Context, owner Owner) (*Cart, error) {
	return e.mutate(ctx, owner, func(c *Cart, _ time.Time) (bool, error) {
		if len(c.Items) == 0 {
			return false, nil
		}
		c.Items = []Item{}
		return true, nil
	})
}

// RemovePurchased takes the quantities of a checked-out snapshot off the
// live cart. Lines added or topped up after the snapshot was taken stay.
func (e *Engine) RemovePurchased(ctx context.Context, owner Owner, lines []types.CartLineSnapshot) (*Cart, error) {
	bought := make(map[[2]string]int, len(lines))
	for _, line := range lines {
		bought[[2]string{line.ProductID, line.PackageID}] += line.Quantity
	}
	return e.mutate(ctx, owner, func(c *Cart, now time.Time) (bool, error) {
		kept := c.Items[:0]
		changed := false
		for _, item := range c.Items {
			qty, ok := bought[[2]string{item.ProductID.String(), item.PackageID.String()}]
			if !ok || qty <= 0 {
				kept = append(kept, item)
				continue
			}
			changed = true
			if item.Quantity > qty {
				item.Quantity -= qty
				item.UpdatedAt = now
				kept = append(kept, item)
			}
		}
		c.Items = kept
		return changed, nil
	})
}

func (e *Engine) UpdateNotes(ctx context.Context, owner Owner, notes string) (*Cart, error) {
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "notes must be at most %d characters", maxNotesLength)
	}
	return e.mutate(ctx, owner, func(c *Cart, _ time.Time) (bool, error) {
		if c.Notes == notes {
			return false, nil
		}
		c.Notes = notes
		return true, nil
	})
}

// MergeWithRemote folds the guest cart for sessionID into the user's cart,
// writes the result to Postgres before returning and drops the guest blob.
func (e *Engine) MergeWithRemote(ctx context.Context, sessionID string, userID uuid.UUID) (*Cart, error) {
	session := SessionOwner(sessionID)
	user := UserOwner(userID)
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(session.Key(), user.Key())
	defer unlock()

	local, found, err := e.store.Load(ctx, session)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		remote, err := e.load(ctx, user)
		if err != nil {
			return nil, err
		}
		if !found || len(local.Items) == 0 {
			if found {
				e.dropSession(ctx, session)
			}
			return remote, nil
		}

		now := e.now()
		merged := remote.clone()
		merged.Items = mergeItems(remote.Items, local.Items, e.newID, now)
		if merged.Notes == "" {
			merged.Notes = local.Notes
		}
		merged.Version = remote.Version + 1
		merged.UpdatedAt = now
		merged.Summary = e.pricing.Summarize(merged.Items)

		if err := e.store.Save(ctx, user, merged, remote.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		written := merged.Version
		if err := e.writeThrough(ctx, merged); err != nil {
			return nil, err
		}
		if merged.Version != written {
			if err := e.store.Save(ctx, user, merged, written); err != nil {
				e.logg.Error(e.logg.WithUserID(ctx, userID.String()), "re-version merged cart", err)
			}
		}
		e.dropSession(ctx, session)

		ctx = e.logg.WithCartID(e.logg.WithUserID(ctx, userID.String()), merged.ID.String())
		e.logg.Info(ctx, fmt.Sprintf("merged %d guest lines into cart", len(local.Items)))
		return merged, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during merge, retry")
}

// writeThrough stores c in Postgres now. When Postgres already holds a newer
// version the cart is re-versioned above it and written again.
func (e *Engine) writeThrough(ctx context.Context, c *Cart) error {
	snap := e.snapshot(c)
	applied, err := e.repo.SaveSnapshot(ctx, snap)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save merged cart")
	}
	if !applied {
		stored, err := e.repo.FindByUser(ctx, *c.UserID)
		if err != nil {
			return err
		}
		c.Version = stored.Version + 1
		snap = e.snapshot(c)
		if applied, err = e.repo.SaveSnapshot(ctx, snap); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save merged cart")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during merge, retry")
		}
	}
	e.syncer.MarkSynced(*c.UserID, c.Version)
	return nil
}

func (e *Engine) dropSession(ctx context.Context, session Owner) {
	if err := e.store.Delete(ctx, session); err != nil {
		e.logg.Error(e.logg.WithSessionID(ctx, session.SessionID), "delete guest cart", err)
	}
}

// SaveForLater parks the current lines under name and empties the cart.
func (e *Engine) SaveForLater(ctx context.Context, owner Owner, name string) (*SavedCart, error) {
	if !owner.IsUser() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to save carts")
	}
	name = strings.TrimSpace(name)
	if len(name) > maxSavedName {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "name must be at most %d characters", maxSavedName)
	}

	var saved *models.SavedCart
	_, err := e.mutate(ctx, owner, func(c *Cart, now time.Time) (bool, error) {
		if len(c.Items) == 0 {
			return false, pkgerrors.New(pkgerrors.CodeValidation, "cannot save an empty cart")
		}
		if name == "" {
			name = "Saved " + now.Format("2006-01-02 15:04")
		}
		if saved != nil {
			// An earlier attempt lost the version race; replace its row.
			if _, err := e.repo.DeleteSaved(ctx, saved.UserID, saved.ID); err != nil {
				return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart for later")
			}
		}
		saved = &models.SavedCart{
			UserID:    *owner.UserID,
			Name:      name,
			Items:     c.Lines(),
			CreatedAt: now,
		}
		if err := e.repo.CreateSaved(ctx, saved); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart for later")
		}
		c.Items = []Item{}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return e.savedView(*saved), nil
}

func (e *Engine) ListSaved(ctx context.Context, userID uuid.UUID) ([]SavedCart, error) {
	rows, err := e.repo.ListSaved(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list saved carts")
	}
	out := make([]SavedCart, 0, len(rows))
	for _, row := range rows {
		out = append(out, *e.savedView(row))
	}
	return out, nil
}

// RestoreSaved merges a saved cart back into the live cart and removes it.
func (e *Engine) RestoreSaved(ctx context.Context, owner Owner, savedID uuid.UUID) (*Cart, error) {
	if !owner.IsUser() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to restore saved carts")
	}
	saved, err := e.repo.FindSaved(ctx, *owner.UserID, savedID)
	if err != nil {
		return nil, err
	}
	restored := itemsFromLines(saved.Items)

	c, err := e.mutate(ctx, owner, func(c *Cart, now time.Time) (bool, error) {
		c.Items = mergeItems(c.Items, restored, e.newID, now)
		return len(restored) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := e.repo.DeleteSaved(ctx, *owner.UserID, savedID); err != nil {
		e.logg.Error(ctx, "delete restored saved cart", err)
	}
	return c, nil
}

func (e *Engine) DeleteSaved(ctx context.Context, userID, savedID uuid.UUID) error {
	deleted, err := e.repo.DeleteSaved(ctx, userID, savedID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete saved cart")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "saved cart not found")
	}
	return nil
}

// SyncHealth reports the durable-copy state for owner. Guest carts never
// leave the local store.
func (e *Engine) SyncHealth(ctx context.Context, owner Owner) (SyncHealth, error) {
	if err := owner.Validate(); err != nil {
		return SyncHealth{}, err
	}
	if !owner.IsUser() {
		return SyncHealth{Remote: false}, nil
	}
	return e.syncer.Health(*owner.UserID), nil
}

func (e *Engine) mutate(ctx context.Context, owner Owner, fn func(c *Cart, now time.Time) (bool, error)) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(owner.Key())
	defer unlock()

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		c, err := e.load(ctx, owner)
		if err != nil {
			return nil, err
		}
		now := e.now()
		working := c.clone()
		changed, err := fn(working, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			return c, nil
		}

		working.Version = c.Version + 1
		working.UpdatedAt = now
		working.Summary = e.pricing.Summarize(working.Items)
		if err := e.store.Save(ctx, owner, working, c.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		if owner.IsUser() {
			e.syncer.Enqueue(e.snapshot(working))
		}
		return working, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart is being updated elsewhere, retry")
}

// load reads the local blob. On a miss it seeds the blob from Postgres (users)
// or with an empty cart (guests); concurrent misses for one owner share a
// single seed.
func (e *Engine) load(ctx context.Context, owner Owner) (*Cart, error) {
	c, found, err := e.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if found {
		c.Summary = e.pricing.Summarize(c.Items)
		return c, nil
	}

	v, err, _ := e.loads.Do(owner.Key(), func() (any, error) {
		return e.seed(ctx, owner)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart).clone(), nil
}

func (e *Engine) seed(ctx context.Context, owner Owner) (*Cart, error) {
	now := e.now()
	c := e.emptyCart(owner, now)
	if owner.IsUser() {
		record, err := e.repo.FindByUser(ctx, *owner.UserID)
		switch {
		case err == nil:
			c = toCart(record, now)
		case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			return nil, err
		}
	}
	c.Summary = e.pricing.Summarize(c.Items)

	err := e.store.Save(ctx, owner, c, absentVersion)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrVersionConflict) {
		return nil, err
	}
	// Another replica seeded first; its blob wins.
	stored, found, err := e.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed while loading, retry")
	}
	stored.Summary = e.pricing.Summarize(stored.Items)
	return stored, nil
}

func (e *Engine) emptyCart(owner Owner, now time.Time) *Cart {
	return &Cart{
		ID:        e.newID(),
		UserID:    owner.UserID,
		SessionID: owner.SessionID,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *Engine) snapshot(c *Cart) Snapshot {
	return Snapshot{
		CartID:  c.ID,
		UserID:  *c.UserID,
		Notes:   c.Notes,
		Version: c.Version,
		Items:   append([]Item(nil), c.Items...),
		TakenAt: e.now(),
	}
}

func (e *Engine) savedView(row models.SavedCart) *SavedCart {
	items := itemsFromLines(row.Items)
	return &SavedCart{
		ID:        row.ID,
		Name:      row.Name,
		Items:     row.Items,
		Summary:   e.pricing.Summarize(items),
		CreatedAt: row.CreatedAt,
	}
}

func itemsFromLines(lines []types.CartLineSnapshot) []Item {
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			continue
		}
		packageID, err := uuid.Parse(line.PackageID)
		if err != nil {
			continue
		}
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			itemID = uuid.New()
		}
		items = append(items, Item{
			ID:        itemID,
			ProductID: productID,
			PackageID: packageID,
			Product:   line.Product,
			Package:   line.Package,
			Quantity:  line.Quantity,
		})
	}
	return items
}
