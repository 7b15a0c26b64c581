package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/lubrihub/storefront-backend/internal/cart"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	PackageID uuid.UUID `json:"package_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
}

func (r addItemRequest) toInput() cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		ProductID: r.ProductID,
		PackageID: r.PackageID,
		Quantity:  r.Quantity,
	}
}

// Quantity is a pointer so a missing field is rejected instead of read as a
// removal.
type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type saveForLaterRequest struct {
	Name string `json:"name" validate:"max=120"`
}

type mergeRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}
