package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/internal/payments"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// PaymentSelection is the payment step form. Provider-specific fields are
// checked by the payments service.
type PaymentSelection struct {
	Provider      enums.PaymentProvider `json:"provider" validate:"required"`
	PhoneNumber   string                `json:"phone_number,omitempty"`
	CardToken     string                `json:"card_token,omitempty"`
	AccountNumber string                `json:"account_number,omitempty"`
	BankCode      string                `json:"bank_code,omitempty"`
}

// DraftView is the API shape of a checkout draft.
type DraftView struct {
	ID              uuid.UUID                 `json:"id"`
	CartID          uuid.UUID                 `json:"cart_id"`
	Step            enums.CheckoutStep        `json:"step"`
	Status          enums.CheckoutDraftStatus `json:"status"`
	Shipping        *types.ShippingDetails    `json:"shipping,omitempty"`
	PaymentProvider *enums.PaymentProvider    `json:"payment_provider,omitempty"`
	TransactionID   *string                   `json:"transaction_id,omitempty"`
	CartSnapshot    *types.CartSnapshot       `json:"cart_snapshot,omitempty"`
	OrderID         *uuid.UUID                `json:"order_id,omitempty"`
	ExpiresAt       time.Time                 `json:"expires_at"`
	CompletedAt     *time.Time                `json:"completed_at,omitempty"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

func NewDraftView(d *models.CheckoutDraft) DraftView {
	return DraftView{
		ID:              d.ID,
		CartID:          d.CartID,
		Step:            d.Step,
		Status:          d.Status,
		Shipping:        d.Shipping,
		PaymentProvider: d.PaymentProvider,
		TransactionID:   d.TransactionID,
		CartSnapshot:    d.CartSnapshot,
		OrderID:         d.OrderID,
		ExpiresAt:       d.ExpiresAt,
		CompletedAt:     d.CompletedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// PaymentStepResult pairs the draft with the gateway's answer.
type PaymentStepResult struct {
	Draft   DraftView                 `json:"draft"`
	Payment *payments.PaymentResponse `json:"payment"`
}

// ExpiryResult summarizes one ExpireDrafts pass.
type ExpiryResult struct {
	Scanned   int
	Abandoned int
	Finalized int
}
