package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/api/middleware"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

// RequireUserID returns the authenticated user's id.
func RequireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
