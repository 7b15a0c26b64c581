package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lubrihub/storefront-backend/pkg/config"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.PaymentsConfig{
		GatewayBaseURL: srv.URL + "/v1/",
		GatewayAPIKey:  "sk_test",
		Timeout:        2 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestInitiateSendsBearerAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments/initiate", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var body InitiateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.True(t, body.Amount.Equal(decimal.NewFromInt(1000)))
		require.Equal(t, "mpesa", body.Provider)
		require.Equal(t, "+254712345678", body.PhoneNumber)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"transaction_id": "gw_tx_1",
			"status":         "pending",
			"reference":      body.Reference,
		})
	})

	resp, err := client.Initiate(context.Background(), InitiateRequest{
		Amount:      decimal.NewFromInt(1000),
		Currency:    "KES",
		Provider:    "mpesa",
		Reference:   "LH-1",
		PhoneNumber: "+254712345678",
	})
	require.NoError(t, err)
	require.Equal(t, "gw_tx_1", resp.TransactionID)
	require.Equal(t, "pending", resp.Status)
	require.Equal(t, "LH-1", resp.Reference)
}

func TestInitiateCarriesGatewayMessageOnFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"M-Pesa is temporarily unavailable"}}`))
	})

	_, err := client.Initiate(context.Background(), InitiateRequest{Amount: decimal.NewFromInt(1), Provider: "mpesa"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
	require.Equal(t, "M-Pesa is temporarily unavailable", typed.Message())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, details["gateway_status"])
}

func TestValidationFailureMapsToValidationCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid phone number"}`))
	})

	_, err := client.Initiate(context.Background(), InitiateRequest{Amount: decimal.NewFromInt(1), Provider: "mpesa"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "invalid phone number", pkgerrors.As(err).Message())
}

func TestStatusEscapesIDAndDefaultsTransactionID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/payments/tx 1/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"completed"}`))
	})

	resp, err := client.Status(context.Background(), "tx 1")
	require.NoError(t, err)
	require.Equal(t, "tx 1", resp.TransactionID)
	require.Equal(t, "completed", resp.Status)
}

func TestRefund(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/gw_tx_1/refund", r.URL.Path)
		var body RefundRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.True(t, body.Amount.Equal(decimal.NewFromInt(250)))
		_, _ = w.Write([]byte(`{"refund_id":"rf_1","transaction_id":"gw_tx_1","status":"pending","amount":"250"}`))
	})

	resp, err := client.Refund(context.Background(), "gw_tx_1", RefundRequest{Amount: decimal.NewFromInt(250), Reason: "damaged drum"})
	require.NoError(t, err)
	require.Equal(t, "rf_1", resp.RefundID)
}

func TestTimeoutIsDependencyError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	client, err := NewClient(config.PaymentsConfig{
		GatewayBaseURL: srv.URL,
		GatewayAPIKey:  "sk_test",
		Timeout:        50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = client.Status(context.Background(), "gw_tx_1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(config.PaymentsConfig{GatewayAPIKey: "k"}, nil)
	require.ErrorIs(t, err, errBaseURLRequired)
	_, err = NewClient(config.PaymentsConfig{GatewayBaseURL: "https://pay.example.test"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)
}
