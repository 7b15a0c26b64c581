package payments

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/api/controllers"
	"github.com/lubrihub/storefront-backend/api/responses"
	"github.com/lubrihub/storefront-backend/api/validators"
	paymentsvc "github.com/lubrihub/storefront-backend/internal/payments"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/pagination"
)

const maxTransactionIDLength = 128

// Service is the payment adapter surface used by the HTTP layer.
type Service interface {
	InitiatePayment(ctx context.Context, req paymentsvc.PaymentRequest) (*paymentsvc.PaymentResponse, error)
	CheckTransactionStatus(ctx context.Context, transactionID string) (*paymentsvc.TransactionVerification, error)
	GetTransaction(ctx context.Context, transactionID string, userID *uuid.UUID) (*paymentsvc.TransactionDetail, error)
	ListTransactions(ctx context.Context, params paymentsvc.ListParams) (*paymentsvc.ListResult, error)
	ProcessRefund(ctx context.Context, req paymentsvc.RefundRequest) (*paymentsvc.RefundResponse, error)
}

// PaymentInitiate starts a standalone payment for the caller.
func PaymentInitiate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req paymentsvc.PaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req.UserID = &userID

		resp, err := svc.InitiatePayment(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// PaymentList lists the caller's transactions, newest first.
func PaymentList(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.UserID = &userID

		result, err := svc.ListTransactions(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaymentDetail returns one of the caller's transactions with refunds and history.
func PaymentDetail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transactionID, err := validators.ParseStringParam(r, "transactionId", maxTransactionIDLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetTransaction(r.Context(), transactionID, &userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// PaymentVerify polls the gateway for one of the caller's transactions.
func PaymentVerify(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transactionID, err := validators.ParseStringParam(r, "transactionId", maxTransactionIDLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// ownership check before touching the gateway
		if _, err := svc.GetTransaction(r.Context(), transactionID, &userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		verification, err := svc.CheckTransactionStatus(r.Context(), transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, verification)
	}
}

func listParams(r *http.Request) (paymentsvc.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return paymentsvc.ListParams{}, err
	}
	params := paymentsvc.ListParams{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseTransactionStatus(raw)
		if err != nil {
			return paymentsvc.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("provider")); raw != "" {
		provider, err := enums.ParsePaymentProvider(raw)
		if err != nil {
			return paymentsvc.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider")
		}
		params.Provider = &provider
	}
	return params, nil
}
