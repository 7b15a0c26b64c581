package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Email     string
	Role      enums.UserRole
	CompanyID *uuid.UUID
	JTI       string
}

// AccessTokenClaims represents the typed JWT presented by storefront clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID      `json:"user_id"`
	Email     string         `json:"email,omitempty"`
	Role      enums.UserRole `json:"role"`
	CompanyID *uuid.UUID     `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}
