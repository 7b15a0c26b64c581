package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// Owner identifies whose cart is addressed: exactly one of UserID or SessionID.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

func UserOwner(id uuid.UUID) Owner {
	return Owner{UserID: &id}
}

func SessionOwner(id string) Owner {
	return Owner{SessionID: strings.TrimSpace(id)}
}

func (o Owner) IsUser() bool {
	return o.UserID != nil
}

func (o Owner) Validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasSession := o.SessionID != ""
	if hasUser == hasSession {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be exactly one of user or session")
	}
	return nil
}

// Key is the lock and storage discriminator for the owner.
func (o Owner) Key() string {
	if o.UserID != nil {
		return "user:" + o.UserID.String()
	}
	return "session:" + o.SessionID
}

func (o Owner) kind() (string, string) {
	if o.UserID != nil {
		return "user", o.UserID.String()
	}
	return "session", o.SessionID
}

// Cart is the engine's working copy. Summary is derived and recomputed on
// every load and mutation.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Items     []Item     `json:"items"`
	Notes     string     `json:"notes,omitempty"`
	Version   int64      `json:"version"`
	Summary   Summary    `json:"summary"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Item struct {
	ID        uuid.UUID             `json:"id"`
	ProductID uuid.UUID             `json:"product_id"`
	PackageID uuid.UUID             `json:"package_id"`
	Product   types.ProductSnapshot `json:"product"`
	Package   types.PackageSnapshot `json:"package"`
	Quantity  int                   `json:"quantity"`
	LineTotal decimal.Decimal       `json:"line_total"`
	AddedAt   time.Time             `json:"added_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

type Summary struct {
	TotalItems  int             `json:"total_items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
}

// SyncHealth reports how far the durable copy of a user's cart lags behind.
type SyncHealth struct {
	Remote          bool       `json:"remote"`
	Pending         bool       `json:"pending"`
	LocalVersion    int64      `json:"local_version"`
	SyncedVersion   int64      `json:"synced_version"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt   *time.Time `json:"last_failure_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	Retries         int        `json:"retries"`
	StaleRejections int        `json:"stale_rejections"`
}

// Snapshot is one versioned write of a user's cart to Postgres.
type Snapshot struct {
	CartID  uuid.UUID
	UserID  uuid.UUID
	Notes   string
	Version int64
	Items   []Item
	TakenAt time.Time
}

// SavedCart is a parked copy of cart lines.
type SavedCart struct {
	ID        uuid.UUID                `json:"id"`
	Name      string                   `json:"name"`
	Items     []types.CartLineSnapshot `json:"items"`
	Summary   Summary                  `json:"summary"`
	CreatedAt time.Time                `json:"created_at"`
}

// Lines freezes the cart items for saved carts and checkout drafts.
func (c *Cart) Lines() []types.CartLineSnapshot {
	out := make([]types.CartLineSnapshot, 0, len(c.Items))
	for _, item := range c.Items {
		out = append(out, item.line())
	}
	return out
}

// Snapshot freezes the cart with its summary for checkout.
func (c *Cart) Snapshot() types.CartSnapshot {
	return types.CartSnapshot{
		CartID:  c.ID.String(),
		Version: c.Version,
		Items:   c.Lines(),
		Summary: types.SummarySnapshot{
			TotalItems:  c.Summary.TotalItems,
			Subtotal:    c.Summary.Subtotal,
			Tax:         c.Summary.Tax,
			ShippingFee: c.Summary.ShippingFee,
			Discount:    c.Summary.Discount,
			Total:       c.Summary.Total,
			Currency:    c.Summary.Currency,
		},
	}
}

func (i Item) line() types.CartLineSnapshot {
	return types.CartLineSnapshot{
		ItemID:    i.ID.String(),
		ProductID: i.ProductID.String(),
		PackageID: i.PackageID.String(),
		Product:   i.Product,
		Package:   i.Package,
		Quantity:  i.Quantity,
	}
}

func (c *Cart) clone() *Cart {
	out := *c
	out.Items = append([]Item(nil), c.Items...)
	return &out
}
