package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/lubrihub/storefront-backend/pkg/types"
)

// InitiateRequest is the body of POST /payments/initiate.
type InitiateRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Provider      string          `json:"provider"`
	Reference     string          `json:"reference"`
	Description   string          `json:"description,omitempty"`
	PhoneNumber   string          `json:"phone_number,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	BankCode      string          `json:"bank_code,omitempty"`
	CardToken     string          `json:"card_token,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	CallbackURL   string          `json:"callback_url,omitempty"`
	Metadata      types.Metadata  `json:"metadata,omitempty"`
}

// TransactionResponse is returned by initiate and status calls.
type TransactionResponse struct {
	TransactionID     string          `json:"transaction_id"`
	Status            string          `json:"status"`
	Reference         string          `json:"reference,omitempty"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency,omitempty"`
	Message           string          `json:"message,omitempty"`
	CheckoutURL       string          `json:"checkout_url,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
}

// RefundRequest is the body of POST /payments/{id}/refund.
type RefundRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
	Reference string          `json:"reference,omitempty"`
}

// RefundResponse is returned by the refund call.
type RefundResponse struct {
	RefundID      string          `json:"refund_id"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Message       string          `json:"message,omitempty"`
}
