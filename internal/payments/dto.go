package payments

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lubrihub/storefront-backend/pkg/db/models"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// PaymentRequest is the caller-facing initiate input.
type PaymentRequest struct {
	Amount        decimal.Decimal       `json:"amount" validate:"required"`
	Currency      enums.Currency        `json:"currency,omitempty"`
	Provider      enums.PaymentProvider `json:"provider" validate:"required"`
	Reference     string                `json:"reference,omitempty" validate:"omitempty,max=64"`
	Description   string                `json:"description,omitempty" validate:"omitempty,max=255"`
	PhoneNumber   string                `json:"phone_number,omitempty"`
	AccountNumber string                `json:"account_number,omitempty"`
	BankCode      string                `json:"bank_code,omitempty"`
	CardToken     string                `json:"card_token,omitempty"`
	CustomerEmail string                `json:"customer_email,omitempty" validate:"omitempty,email"`
	Metadata      types.Metadata        `json:"metadata,omitempty"`

	UserID *uuid.UUID `json:"-"`
	CartID *uuid.UUID `json:"-"`
}

// PaymentResponse reports the outcome of an initiate call.
type PaymentResponse struct {
	TransactionID     string                  `json:"transaction_id"`
	Status            enums.TransactionStatus `json:"status"`
	Reference         string                  `json:"reference"`
	ProviderReference string                  `json:"provider_reference,omitempty"`
	Provider          enums.PaymentProvider   `json:"provider"`
	Amount            decimal.Decimal         `json:"amount"`
	Currency          enums.Currency          `json:"currency"`
	Message           string                  `json:"message,omitempty"`
	CheckoutURL       string                  `json:"checkout_url,omitempty"`
}

// TransactionVerification is the result of polling the gateway.
type TransactionVerification struct {
	TransactionID  string                  `json:"transaction_id"`
	Status         enums.TransactionStatus `json:"status"`
	PreviousStatus enums.TransactionStatus `json:"previous_status,omitempty"`
	Changed        bool                    `json:"changed"`
	Amount         decimal.Decimal         `json:"amount"`
	Currency       enums.Currency          `json:"currency"`
	Reference      string                  `json:"reference,omitempty"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
	VerifiedAt     time.Time               `json:"verified_at"`
}

// RefundRequest asks for money back on a completed transaction. A zero Amount
// refunds whatever is still refundable.
type RefundRequest struct {
	TransactionID string          `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty" validate:"omitempty,max=255"`
	Reference     string          `json:"reference,omitempty" validate:"omitempty,max=64"`
}

type RefundResponse struct {
	RefundID          string                  `json:"refund_id"`
	TransactionID     string                  `json:"transaction_id"`
	Status            enums.RefundStatus      `json:"status"`
	Amount            decimal.Decimal         `json:"amount"`
	Currency          enums.Currency          `json:"currency"`
	TransactionStatus enums.TransactionStatus `json:"transaction_status"`
	RefundedAmount    decimal.Decimal         `json:"refunded_amount"`
	Message           string                  `json:"message,omitempty"`
}

// WebhookPayload is the body the gateway posts to the webhook endpoint.
type WebhookPayload struct {
	ID        string           `json:"id,omitempty"`
	Event     string           `json:"event"`
	Data      json.RawMessage  `json:"data"`
	Signature string           `json:"signature"`
	Timestamp WebhookTimestamp `json:"timestamp"`
}

// WebhookTimestamp accepts both string and numeric timestamps and keeps the
// literal text, which is what the signature covers.
type WebhookTimestamp string

func (t *WebhookTimestamp) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = WebhookTimestamp(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(trimmed), 64); err != nil {
		return err
	}
	*t = WebhookTimestamp(trimmed)
	return nil
}

func (t WebhookTimestamp) String() string {
	return string(t)
}

// Time parses the timestamp as unix seconds, unix milliseconds or RFC 3339.
func (t WebhookTimestamp) Time() (time.Time, error) {
	raw := strings.TrimSpace(string(t))
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs >= 1e12 {
			return time.UnixMilli(int64(secs)).UTC(), nil
		}
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*float64(time.Second))).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

type webhookData struct {
	TransactionID     string          `json:"transaction_id"`
	RefundID          string          `json:"refund_id"`
	Status            string          `json:"status"`
	Reference         string          `json:"reference"`
	ProviderReference string          `json:"provider_reference"`
	Amount            decimal.Decimal `json:"amount"`
	FailureReason     string          `json:"failure_reason"`
	Message           string          `json:"message"`
}

// ListParams filters ListTransactions. Nil UserID lists every user's rows.
type ListParams struct {
	UserID   *uuid.UUID
	Status   *enums.TransactionStatus
	Provider *enums.PaymentProvider
	Limit    int
	Cursor   string
}

type ListResult struct {
	Transactions []TransactionView `json:"transactions"`
	NextCursor   string            `json:"next_cursor,omitempty"`
}

// TransactionDetail is a transaction with its refunds and status history.
type TransactionDetail struct {
	Transaction TransactionView   `json:"transaction"`
	Refunds     []RefundView      `json:"refunds"`
	History     []StatusEventView `json:"history"`
}

type TransactionView struct {
	TransactionID     string                  `json:"transaction_id"`
	Provider          enums.PaymentProvider   `json:"provider"`
	Status            enums.TransactionStatus `json:"status"`
	Amount            decimal.Decimal         `json:"amount"`
	RefundedAmount    decimal.Decimal         `json:"refunded_amount"`
	Currency          enums.Currency          `json:"currency"`
	Reference         string                  `json:"reference"`
	ProviderReference *string                 `json:"provider_reference,omitempty"`
	UserID            *uuid.UUID              `json:"user_id,omitempty"`
	CartID            *uuid.UUID              `json:"cart_id,omitempty"`
	Metadata          types.Metadata          `json:"metadata,omitempty"`
	FailureReason     *string                 `json:"failure_reason,omitempty"`
	CompletedAt       *time.Time              `json:"completed_at,omitempty"`
	FailedAt          *time.Time              `json:"failed_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

type RefundView struct {
	RefundID    string             `json:"refund_id"`
	Amount      decimal.Decimal    `json:"amount"`
	Currency    enums.Currency     `json:"currency"`
	Reason      *string            `json:"reason,omitempty"`
	Status      enums.RefundStatus `json:"status"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

type StatusEventView struct {
	FromStatus *enums.TransactionStatus `json:"from_status,omitempty"`
	ToStatus   enums.TransactionStatus  `json:"to_status"`
	Source     enums.StatusSource       `json:"source"`
	Note       *string                  `json:"note,omitempty"`
	OccurredAt time.Time                `json:"occurred_at"`
}

func NewTransactionView(tx models.PaymentTransaction) TransactionView {
	return TransactionView{
		TransactionID:     tx.TransactionID,
		Provider:          tx.Provider,
		Status:            tx.Status,
		Amount:            tx.Amount,
		RefundedAmount:    tx.RefundedAmount,
		Currency:          tx.Currency,
		Reference:         tx.Reference,
		ProviderReference: tx.ProviderReference,
		UserID:            tx.UserID,
		CartID:            tx.CartID,
		Metadata:          tx.Metadata,
		FailureReason:     tx.FailureReason,
		CompletedAt:       tx.CompletedAt,
		FailedAt:          tx.FailedAt,
		CreatedAt:         tx.CreatedAt,
		UpdatedAt:         tx.UpdatedAt,
	}
}

func newRefundView(r models.PaymentRefund) RefundView {
	return RefundView{
		RefundID:    r.RefundID,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Reason:      r.Reason,
		Status:      r.Status,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
	}
}

func newStatusEventView(e models.TransactionStatusEvent) StatusEventView {
	return StatusEventView{
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		Source:     e.Source,
		Note:       e.Note,
		OccurredAt: e.OccurredAt,
	}
}
