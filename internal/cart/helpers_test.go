package cart

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/lubrihub/storefront-backend/pkg/db/dbtest"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type memoryKV struct {
	mu      sync.Mutex
	data    map[string]string
	expires map[string]time.Duration

	// beforeWrite runs outside the lock ahead of every versioned write.
	beforeWrite func(key string)
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, expires: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryKV) SetIfVersion(_ context.Context, key, value string, expected int64, ttl time.Duration) (bool, error) {
	if hook := m.beforeWrite; hook != nil {
		hook(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := int64(-1)
	if current, ok := m.data[key]; ok {
		var head struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal([]byte(current), &head); err == nil {
			stored = head.Version
		}
	}
	if stored != expected {
		return false, nil
	}
	m.data[key] = value
	m.expires[key] = ttl
	return true, nil
}

func (m *memoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = ttl
	return nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKV) CartKey(kind, ownerID string) string {
	return "cart:" + kind + ":" + ownerID
}

func (m *memoryKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type stubCatalog struct {
	packages map[uuid.UUID]types.PackageSnapshot
}

func (c stubCatalog) GetSnapshot(_ context.Context, productID, packageID uuid.UUID) (types.ProductSnapshot, types.PackageSnapshot, error) {
	pkg, ok := c.packages[packageID]
	if !ok {
		return types.ProductSnapshot{}, types.PackageSnapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}
	return types.ProductSnapshot{ID: productID.String(), Name: "Engine Oil 5W-30", Brand: "Lubri", Category: "engine_oil"}, pkg, nil
}

func testPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.RequireFromString("0.16"),
		DiscountRate:          decimal.Zero,
		FreeShippingThreshold: decimal.NewFromInt(10000),
		FlatShippingFee:       decimal.NewFromInt(500),
		Currency:              "KES",
	}
}

func packageAt(id uuid.UUID, price string) types.PackageSnapshot {
	return types.PackageSnapshot{
		ID:    id.String(),
		SKU:   "SKU-" + id.String()[:8],
		Size:  decimal.NewFromInt(4),
		Unit:  "L",
		Price: decimal.RequireFromString(price),
	}
}

type engineFixture struct {
	engine  *Engine
	kv      *memoryKV
	repo    Repository
	syncer  *Syncer
	product uuid.UUID
	pkgA    uuid.UUID
	pkgB    uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	conn := dbtest.Open(t, &models.Cart{}, &models.CartItem{}, &models.SavedCart{})
	repo := NewRepository(conn)
	kv := newMemoryKV()
	store, err := NewLocalStore(kv, time.Hour)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	syncer, err := NewSyncer(SyncerParams{
		Writer:      repo,
		MaxRetries:  1,
		BaseBackoff: time.Millisecond,
		Now:         func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}

	f := &engineFixture{
		kv:      kv,
		repo:    repo,
		syncer:  syncer,
		product: uuid.New(),
		pkgA:    uuid.New(),
		pkgB:    uuid.New(),
	}
	catalog := stubCatalog{packages: map[uuid.UUID]types.PackageSnapshot{
		f.pkgA: packageAt(f.pkgA, "1200"),
		f.pkgB: packageAt(f.pkgB, "3500.50"),
	}}
	engine, err := NewEngine(EngineParams{
		Store:   store,
		Repo:    repo,
		Catalog: catalog,
		Syncer:  syncer,
		Pricing: testPricing(),
		Now:     func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	f.engine = engine
	return f
}

// replica builds a second engine over the same Redis blob store, as another
// API process would. It has its own owner locks and sync worker.
func (f *engineFixture) replica(t *testing.T, repo Repository) *Engine {
	t.Helper()
	store, err := NewLocalStore(f.kv, time.Hour)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	syncer, err := NewSyncer(SyncerParams{
		Writer:      repo,
		MaxRetries:  1,
		BaseBackoff: time.Millisecond,
		Now:         func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}
	engine, err := NewEngine(EngineParams{
		Store:   store,
		Repo:    repo,
		Catalog: f.engine.catalog,
		Syncer:  syncer,
		Pricing: testPricing(),
		Now:     func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}
