package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lubrihub/storefront-backend/internal/payments"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

type fakeWebhookService struct {
	calls   int
	payload payments.WebhookPayload
	result  bool
	err     error
}

func (f *fakeWebhookService) ProcessWebhook(_ context.Context, payload payments.WebhookPayload) (bool, error) {
	f.calls++
	f.payload = payload
	return f.result, f.err
}

func signedBody(t *testing.T, secret string) []byte {
	t.Helper()
	data := json.RawMessage(`{"transaction_id":"txn_1","status":"completed"}`)
	sig, err := payments.SignWebhook(secret, "payment.completed", "1767225600", data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	body, err := json.Marshal(map[string]any{
		"event":     "payment.completed",
		"data":      data,
		"signature": sig,
		"timestamp": 1767225600,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestPaymentWebhookAcknowledges(t *testing.T) {
	svc := &fakeWebhookService{result: true}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(signedBody(t, "secret")))
	rec := httptest.NewRecorder()
	PaymentWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one call, got %d", svc.calls)
	}
	if svc.payload.Timestamp.String() != "1767225600" {
		t.Fatalf("numeric timestamp should keep its literal text, got %q", svc.payload.Timestamp)
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestPaymentWebhookSignatureFailureIs401(t *testing.T) {
	svc := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(signedBody(t, "other")))
	rec := httptest.NewRecorder()
	PaymentWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPaymentWebhookProcessingErrorAsksForRetry(t *testing.T) {
	svc := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "check webhook idempotency")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(signedBody(t, "secret")))
	rec := httptest.NewRecorder()
	PaymentWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code < 500 {
		t.Fatalf("expected 5xx, got %d", rec.Code)
	}
}

func TestPaymentWebhookMalformedBody(t *testing.T) {
	svc := &fakeWebhookService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	PaymentWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be invoked for malformed body")
	}
}
