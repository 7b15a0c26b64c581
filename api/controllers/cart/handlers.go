package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/api/controllers"
	"github.com/lubrihub/storefront-backend/api/middleware"
	"github.com/lubrihub/storefront-backend/api/responses"
	"github.com/lubrihub/storefront-backend/api/validators"
	cartsvc "github.com/lubrihub/storefront-backend/internal/cart"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
)

// Service is the cart engine surface used by the HTTP layer.
type Service interface {
	Get(ctx context.Context, owner cartsvc.Owner) (*cartsvc.Cart, error)
	AddItem(ctx context.Context, owner cartsvc.Owner, input cartsvc.AddItemInput) (*cartsvc.Cart, error)
	UpdateQuantity(ctx context.Context, owner cartsvc.Owner, itemID uuid.UUID, quantity int) (*cartsvc.Cart, error)
	RemoveItem(ctx context.Context, owner cartsvc.Owner, itemID uuid.UUID) (*cartsvc.Cart, error)
	Clear(ctx context.Context, owner cartsvc.Owner) (*cartsvc.Cart, error)
	UpdateNotes(ctx context.Context, owner cartsvc.Owner, notes string) (*cartsvc.Cart, error)
	MergeWithRemote(ctx context.Context, sessionID string, userID uuid.UUID) (*cartsvc.Cart, error)
	SaveForLater(ctx context.Context, owner cartsvc.Owner, name string) (*cartsvc.SavedCart, error)
	ListSaved(ctx context.Context, userID uuid.UUID) ([]cartsvc.SavedCart, error)
	RestoreSaved(ctx context.Context, owner cartsvc.Owner, savedID uuid.UUID) (*cartsvc.Cart, error)
	DeleteSaved(ctx context.Context, userID, savedID uuid.UUID) error
	SyncHealth(ctx context.Context, owner cartsvc.Owner) (cartsvc.SyncHealth, error)
}

// CartFetch returns the caller's cart, creating an empty one on first use.
func CartFetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		c, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

func CartAddItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.AddItem(r.Context(), owner, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

// CartUpdateItem sets a line quantity; zero removes the line.
func CartUpdateItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.UpdateQuantity(r.Context(), owner, itemID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

func CartRemoveItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RemoveItem(r.Context(), owner, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

func CartClear(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		c, err := svc.Clear(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

func CartUpdateNotes(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		var payload notesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.UpdateNotes(r.Context(), owner, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

func CartSyncHealth(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		health, err := svc.SyncHealth(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, health)
	})
}

// CartMerge folds the guest cart into the signed-in user's cart. The session
// must be presented through the session header/cookie; a session_id in the
// body is only accepted when it names that same session.
func CartMerge(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload mergeRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required"))
			return
		}
		if claimed := strings.TrimSpace(payload.SessionID); claimed != "" {
			if !middleware.ValidSessionID(claimed) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid session id"))
				return
			}
			if claimed != sessionID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "session does not belong to caller"))
				return
			}
		}

		c, err := svc.MergeWithRemote(r.Context(), sessionID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

func SavedCartCreate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		var payload saveForLaterRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.SaveForLater(r.Context(), cartsvc.UserOwner(userID), payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, saved)
	})
}

func SavedCartList(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		saved, err := svc.ListSaved(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if saved == nil {
			saved = []cartsvc.SavedCart{}
		}
		responses.WriteSuccess(w, map[string]any{"saved_carts": saved})
	})
}

func SavedCartRestore(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		savedID, err := validators.ParseUUIDParam(r, "savedId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RestoreSaved(r.Context(), cartsvc.UserOwner(userID), savedID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

func SavedCartDelete(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		savedID, err := validators.ParseUUIDParam(r, "savedId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteSaved(r.Context(), userID, savedID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	})
}

// ownerFromRequest prefers the authenticated user over the guest session.
func ownerFromRequest(r *http.Request) (cartsvc.Owner, error) {
	if middleware.UserIDFromContext(r.Context()) != "" {
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			return cartsvc.Owner{}, err
		}
		return cartsvc.UserOwner(userID), nil
	}
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		return cartsvc.SessionOwner(sessionID), nil
	}
	return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
}

func withOwner(svc Service, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, cartsvc.Owner)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, owner)
	}
}

func withUser(svc Service, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := controllers.RequireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, userID)
	}
}
