package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lubrihub/storefront-backend/pkg/enums"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/gateway"
	"github.com/lubrihub/storefront-backend/pkg/square"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// Gateway is the provider-facing half of the adapter. Implementations return
// raw gateway statuses; the service maps them onto TransactionStatus.
type Gateway interface {
	Initiate(ctx context.Context, cmd InitiateCommand) (*GatewayTransaction, error)
	Status(ctx context.Context, transactionID string) (*GatewayTransaction, error)
	Refund(ctx context.Context, transactionID string, cmd RefundCommand) (*GatewayRefund, error)
}

// InitiateCommand is a validated, provider-specific initiate request.
type InitiateCommand struct {
	Amount        decimal.Decimal
	Currency      enums.Currency
	Provider      enums.PaymentProvider
	Reference     string
	Description   string
	PhoneNumber   string
	AccountNumber string
	BankCode      string
	CardToken     string
	CustomerEmail string
	CallbackURL   string
	Metadata      types.Metadata
}

type RefundCommand struct {
	Amount    decimal.Decimal
	Currency  enums.Currency
	Reason    string
	Reference string
}

type GatewayTransaction struct {
	TransactionID     string
	Status            string
	ProviderReference string
	Message           string
	CheckoutURL       string
	FailureReason     string
}

type GatewayRefund struct {
	RefundID string
	Status   string
	Message  string
}

// Router picks the Gateway for a provider, falling back to Default.
type Router struct {
	Default    Gateway
	ByProvider map[enums.PaymentProvider]Gateway
}

func (r *Router) For(provider enums.PaymentProvider) (Gateway, error) {
	if r == nil {
		return nil, errors.New("gateway router is nil")
	}
	if gw, ok := r.ByProvider[provider]; ok && gw != nil {
		return gw, nil
	}
	if r.Default == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeInternal, "no gateway configured for %s", provider)
	}
	return r.Default, nil
}

type httpGatewayClient interface {
	Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.TransactionResponse, error)
	Status(ctx context.Context, transactionID string) (*gateway.TransactionResponse, error)
	Refund(ctx context.Context, transactionID string, req gateway.RefundRequest) (*gateway.RefundResponse, error)
}

// HTTPGateway adapts the aggregator REST client.
type HTTPGateway struct {
	client httpGatewayClient
}

func NewHTTPGateway(client httpGatewayClient) (*HTTPGateway, error) {
	if client == nil {
		return nil, errors.New("gateway client is required")
	}
	return &HTTPGateway{client: client}, nil
}

func (g *HTTPGateway) Initiate(ctx context.Context, cmd InitiateCommand) (*GatewayTransaction, error) {
	resp, err := g.client.Initiate(ctx, gateway.InitiateRequest{
		Amount:        cmd.Amount,
		Currency:      cmd.Currency.String(),
		Provider:      cmd.Provider.String(),
		Reference:     cmd.Reference,
		Description:   cmd.Description,
		PhoneNumber:   cmd.PhoneNumber,
		AccountNumber: cmd.AccountNumber,
		BankCode:      cmd.BankCode,
		CardToken:     cmd.CardToken,
		CustomerEmail: cmd.CustomerEmail,
		CallbackURL:   cmd.CallbackURL,
		Metadata:      cmd.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return fromTransactionResponse(resp), nil
}

func (g *HTTPGateway) Status(ctx context.Context, transactionID string) (*GatewayTransaction, error) {
	resp, err := g.client.Status(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return fromTransactionResponse(resp), nil
}

func (g *HTTPGateway) Refund(ctx context.Context, transactionID string, cmd RefundCommand) (*GatewayRefund, error) {
	resp, err := g.client.Refund(ctx, transactionID, gateway.RefundRequest{
		Amount:    cmd.Amount,
		Reason:    cmd.Reason,
		Reference: cmd.Reference,
	})
	if err != nil {
		return nil, err
	}
	return &GatewayRefund{RefundID: resp.RefundID, Status: resp.Status, Message: resp.Message}, nil
}

func fromTransactionResponse(resp *gateway.TransactionResponse) *GatewayTransaction {
	if resp == nil {
		return &GatewayTransaction{}
	}
	return &GatewayTransaction{
		TransactionID:     resp.TransactionID,
		Status:            resp.Status,
		ProviderReference: resp.ProviderReference,
		Message:           resp.Message,
		CheckoutURL:       resp.CheckoutURL,
		FailureReason:     resp.FailureReason,
	}
}

type squarePaymentsClient interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*square.PaymentResult, error)
	GetPayment(ctx context.Context, paymentID string) (*square.PaymentResult, error)
	RefundPayment(ctx context.Context, params square.RefundCreateParams) (*square.RefundResult, error)
}

// SquareGateway charges tokenized cards directly through Square.
type SquareGateway struct {
	client squarePaymentsClient
}

func NewSquareGateway(client squarePaymentsClient) (*SquareGateway, error) {
	if client == nil {
		return nil, errors.New("square client is required")
	}
	return &SquareGateway{client: client}, nil
}

func (g *SquareGateway) Initiate(ctx context.Context, cmd InitiateCommand) (*GatewayTransaction, error) {
	result, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountMinor:    toMinorUnits(cmd.Amount),
		Currency:       cmd.Currency.String(),
		SourceID:       cmd.CardToken,
		IdempotencyKey: cmd.Reference,
		Note:           cmd.Description,
		ReferenceID:    cmd.Reference,
	})
	if err != nil {
		return nil, err
	}
	return &GatewayTransaction{
		TransactionID:     result.ID,
		Status:            result.Status,
		ProviderReference: result.ReceiptURL,
	}, nil
}

func (g *SquareGateway) Status(ctx context.Context, transactionID string) (*GatewayTransaction, error) {
	result, err := g.client.GetPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return &GatewayTransaction{
		TransactionID:     result.ID,
		Status:            result.Status,
		ProviderReference: result.ReceiptURL,
	}, nil
}

func (g *SquareGateway) Refund(ctx context.Context, transactionID string, cmd RefundCommand) (*GatewayRefund, error) {
	result, err := g.client.RefundPayment(ctx, square.RefundCreateParams{
		PaymentID:      transactionID,
		AmountMinor:    toMinorUnits(cmd.Amount),
		Currency:       cmd.Currency.String(),
		Reason:         cmd.Reason,
		IdempotencyKey: cmd.Reference,
	})
	if err != nil {
		return nil, err
	}
	return &GatewayRefund{RefundID: result.ID, Status: result.Status}, nil
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// mapGatewayStatus normalizes gateway and Square status strings.
func mapGatewayStatus(raw string) (enums.TransactionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "initiated", "queued":
		return enums.TransactionStatusPending, true
	case "processing", "approved", "in_progress":
		return enums.TransactionStatusProcessing, true
	case "completed", "success", "successful", "succeeded", "paid":
		return enums.TransactionStatusCompleted, true
	case "failed", "declined", "error", "rejected":
		return enums.TransactionStatusFailed, true
	case "cancelled", "canceled", "voided", "expired":
		return enums.TransactionStatusCancelled, true
	case "refunded":
		return enums.TransactionStatusRefunded, true
	case "partially_refunded":
		return enums.TransactionStatusPartiallyRefunded, true
	default:
		return "", false
	}
}

func mapRefundStatus(raw string) enums.RefundStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "success", "successful", "succeeded":
		return enums.RefundStatusCompleted
	case "failed", "rejected", "declined", "error":
		return enums.RefundStatusFailed
	default:
		return enums.RefundStatusPending
	}
}
