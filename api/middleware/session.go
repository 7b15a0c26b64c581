package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lubrihub/storefront-backend/api/responses"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
)

const (
	SessionHeader = "X-Session-Id"
	SessionCookie = "lh_session"

	maxSessionIDLength = 128
)

// GuestSession resolves the anonymous cart session from the X-Session-Id
// header or the lh_session cookie. When mint is true and neither is present a
// new id is generated and returned in both places so the client can persist it.
func GuestSession(mint bool, cookieTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if sessionID == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					sessionID = strings.TrimSpace(c.Value)
				}
			}

			if sessionID != "" && !ValidSessionID(sessionID) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid session id"))
				return
			}

			if sessionID == "" && mint && UserIDFromContext(r.Context()) == "" {
				sessionID = uuid.NewString()
				w.Header().Set(SessionHeader, sessionID)
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cookieTTL.Seconds()),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := r.Context()
			if sessionID != "" {
				ctx = WithSessionID(ctx, sessionID)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, sessionID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidSessionID reports whether value is an acceptable guest session id.
func ValidSessionID(value string) bool {
	if value == "" || len(value) > maxSessionIDLength {
		return false
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
