package checkout

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/api/controllers"
	"github.com/lubrihub/storefront-backend/api/responses"
	"github.com/lubrihub/storefront-backend/api/validators"
	checkoutsvc "github.com/lubrihub/storefront-backend/internal/checkout"
	"github.com/lubrihub/storefront-backend/internal/payments"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

// Service is the checkout orchestrator surface used by the HTTP layer.
type Service interface {
	Start(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error)
	Current(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error)
	SubmitShipping(ctx context.Context, userID uuid.UUID, details types.ShippingDetails) (*models.CheckoutDraft, error)
	Back(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error)
	SubmitPayment(ctx context.Context, userID uuid.UUID, sel checkoutsvc.PaymentSelection) (*models.CheckoutDraft, *payments.PaymentResponse, error)
	Confirm(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error)
}

// CheckoutCurrent returns the caller's latest checkout draft.
func CheckoutCurrent(svc Service, logg *logger.Logger) http.HandlerFunc {
	return draftHandler(svc, logg, func(ctx context.Context, _ *http.Request, userID uuid.UUID) (*models.CheckoutDraft, error) {
		return svc.Current(ctx, userID)
	})
}

// CheckoutStart opens or resumes the draft for the caller's cart.
func CheckoutStart(svc Service, logg *logger.Logger) http.HandlerFunc {
	return draftHandler(svc, logg, func(ctx context.Context, _ *http.Request, userID uuid.UUID) (*models.CheckoutDraft, error) {
		return svc.Start(ctx, userID)
	})
}

func CheckoutShipping(svc Service, logg *logger.Logger) http.HandlerFunc {
	return draftHandler(svc, logg, func(ctx context.Context, r *http.Request, userID uuid.UUID) (*models.CheckoutDraft, error) {
		var details types.ShippingDetails
		if err := validators.DecodeJSONBody(r, &details); err != nil {
			return nil, err
		}
		return svc.SubmitShipping(ctx, userID, details)
	})
}

func CheckoutBack(svc Service, logg *logger.Logger) http.HandlerFunc {
	return draftHandler(svc, logg, func(ctx context.Context, _ *http.Request, userID uuid.UUID) (*models.CheckoutDraft, error) {
		return svc.Back(ctx, userID)
	})
}

// CheckoutConfirm polls the payment and finalizes the order once it completed.
func CheckoutConfirm(svc Service, logg *logger.Logger) http.HandlerFunc {
	return draftHandler(svc, logg, func(ctx context.Context, _ *http.Request, userID uuid.UUID) (*models.CheckoutDraft, error) {
		return svc.Confirm(ctx, userID)
	})
}

// CheckoutPayment freezes the cart and initiates the payment.
func CheckoutPayment(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var sel checkoutsvc.PaymentSelection
		if err := validators.DecodeJSONBody(r, &sel); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft, payment, err := svc.SubmitPayment(r.Context(), userID, sel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutsvc.PaymentStepResult{
			Draft:   checkoutsvc.NewDraftView(draft),
			Payment: payment,
		})
	}
}

func draftHandler(svc Service, logg *logger.Logger, fn func(context.Context, *http.Request, uuid.UUID) (*models.CheckoutDraft, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := fn(r.Context(), r, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutsvc.NewDraftView(draft))
	}
}
