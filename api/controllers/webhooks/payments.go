package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/lubrihub/storefront-backend/api/responses"
	"github.com/lubrihub/storefront-backend/internal/payments"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
)

const maxWebhookBytes = 1 << 20

type PaymentWebhookService interface {
	ProcessWebhook(ctx context.Context, payload payments.WebhookPayload) (bool, error)
}

// PaymentWebhook receives gateway notifications. Signature failures answer 401
// and processing errors answer 5xx so the gateway redelivers.
func PaymentWebhook(svc PaymentWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		var payload payments.WebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
			return
		}

		processed, err := svc.ProcessWebhook(ctx, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "webhook_event", payload.Event), "payment webhook processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": processed})
	}
}
