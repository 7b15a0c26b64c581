package payments

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/api/responses"
	"github.com/lubrihub/storefront-backend/api/validators"
	paymentsvc "github.com/lubrihub/storefront-backend/internal/payments"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
)

// AdminPaymentList lists transactions across users. An optional user_id
// query narrows the result to one buyer.
func AdminPaymentList(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
				return
			}
			params.UserID = &userID
		}

		result, err := svc.ListTransactions(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminPaymentDetail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		transactionID, err := validators.ParseStringParam(r, "transactionId", maxTransactionIDLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetTransaction(r.Context(), transactionID, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AdminPaymentRefund refunds part or all of a completed transaction.
func AdminPaymentRefund(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		transactionID, err := validators.ParseStringParam(r, "transactionId", maxTransactionIDLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req paymentsvc.RefundRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req.TransactionID = transactionID

		resp, err := svc.ProcessRefund(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}
