package square

import (
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
)

// PaymentCreateParams encapsulates the inputs for a Square card payment.
// AmountMinor is in the currency's smallest unit.
type PaymentCreateParams struct {
	AmountMinor    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) toSquareRequest(idempotencyKey string) *sq.CreatePaymentRequest {
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		LocationID:     ptrString(p.LocationID),
		SourceID:       p.SourceID,
		AmountMoney:    moneyPtr(p.AmountMinor, p.Currency),
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.Note = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.ReferenceID = ptrString(trimmed)
	}
	return req
}

// RefundCreateParams encapsulates the inputs for refunding a Square payment.
type RefundCreateParams struct {
	PaymentID      string
	AmountMinor    int64
	Currency       string
	Reason         string
	IdempotencyKey string
}

// toSquareRequest goes through the JSON shape of the refund endpoint so the
// request stays aligned with the API field names.
func (p RefundCreateParams) toSquareRequest(idempotencyKey string) (*sq.RefundPaymentRequest, error) {
	if strings.TrimSpace(p.PaymentID) == "" {
		return nil, fmt.Errorf("payment id is required")
	}
	if p.AmountMinor <= 0 {
		return nil, fmt.Errorf("refund amount must be positive")
	}
	body := map[string]any{
		"idempotency_key": idempotencyKey,
		"payment_id":      p.PaymentID,
		"amount_money": map[string]any{
			"amount":   p.AmountMinor,
			"currency": normalizeCurrency(p.Currency),
		},
	}
	if reason := strings.TrimSpace(p.Reason); reason != "" {
		body["reason"] = reason
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var req sq.RefundPaymentRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// PaymentResult is the subset of a Square payment the storefront tracks.
type PaymentResult struct {
	ID          string
	Status      string
	ReferenceID string
	ReceiptURL  string
}

// RefundResult is the subset of a Square refund the storefront tracks.
type RefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func paymentResult(payment *sq.Payment) *PaymentResult {
	if payment == nil {
		return &PaymentResult{}
	}
	return &PaymentResult{
		ID:          stringValue(payment.GetID()),
		Status:      stringValue(payment.GetStatus()),
		ReferenceID: stringValue(payment.GetReferenceID()),
		ReceiptURL:  stringValue(payment.GetReceiptURL()),
	}
}

func refundResult(refund any) (*RefundResult, error) {
	if refund == nil {
		return nil, fmt.Errorf("empty refund response")
	}
	raw, err := json.Marshal(refund)
	if err != nil {
		return nil, err
	}
	var out RefundResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("refund response missing id")
	}
	return &out, nil
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func int64Ptr(value int64) *int64 {
	return &value
}

func normalizeCurrency(code string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "KES"
	}
	return trimmed
}

func currencyPtr(code string) *sq.Currency {
	c := sq.Currency(normalizeCurrency(code))
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount <= 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
