package controllers

import (
	"context"
	"net/http"

	"github.com/lubrihub/storefront-backend/api/responses"
	"github.com/lubrihub/storefront-backend/api/validators"
	"github.com/lubrihub/storefront-backend/internal/products"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/pagination"
)

// CatalogService lists the storefront catalog.
type CatalogService interface {
	ListCatalog(ctx context.Context, category string, limit int) ([]products.CatalogItem, error)
}

// ProductCatalog lists active products with their purchasable packages.
func ProductCatalog(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category := validators.SanitizeString(r.URL.Query().Get("category"), 64)

		items, err := svc.ListCatalog(r.Context(), category, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": items})
	}
}
