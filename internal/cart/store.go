package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

// absentVersion asks Save to write only when nothing is stored yet.
const absentVersion int64 = -1

// ErrVersionConflict means another writer replaced the blob since it was read.
var ErrVersionConflict = errors.New("local cart version conflict")

// kv is the slice of pkg/redis the local store needs.
type kv interface {
	Get(ctx context.Context, key string) (string, error)
	SetIfVersion(ctx context.Context, key, value string, expected int64, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(kind, ownerID string) string
}

// LocalStore keeps the working cart as a JSON blob in Redis. Every mutation
// writes it synchronously with a compare-and-set on the cart version, so
// replicas never overwrite each other's edits. Guest carts live only here.
type LocalStore struct {
	kv  kv
	ttl time.Duration
}

func NewLocalStore(store kv, ttl time.Duration) (*LocalStore, error) {
	if store == nil {
		return nil, errors.New("redis store is required")
	}
	return &LocalStore{kv: store, ttl: ttl}, nil
}

// Load returns (nil, false, nil) when nothing is stored for owner.
func (s *LocalStore) Load(ctx context.Context, owner Owner) (*Cart, bool, error) {
	raw, err := s.kv.Get(ctx, s.key(owner))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read local cart")
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		// A corrupt blob is treated as missing so the owner can keep shopping.
		return nil, false, nil
	}
	if !owner.IsUser() && s.ttl > 0 {
		// Guest carts expire after ttl of inactivity, reads included.
		_ = s.kv.Expire(ctx, s.key(owner), s.ttl)
	}
	return &c, true, nil
}

// Save writes c when the stored blob still has version expected. Use
// absentVersion to seed a cart nobody has stored yet.
func (s *LocalStore) Save(ctx context.Context, owner Owner, c *Cart, expected int64) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode local cart")
	}
	applied, err := s.kv.SetIfVersion(ctx, s.key(owner), string(raw), expected, s.ttl)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write local cart")
	}
	if !applied {
		return ErrVersionConflict
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, owner Owner) error {
	if err := s.kv.Del(ctx, s.key(owner)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete local cart")
	}
	return nil
}

func (s *LocalStore) key(owner Owner) string {
	kind, id := owner.kind()
	return s.kv.CartKey(kind, id)
}
