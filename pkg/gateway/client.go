// Package gateway is the HTTP client for the hosted payment gateway that
// fronts M-Pesa, Airtel Money, card and bank transfer collection.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lubrihub/storefront-backend/pkg/config"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 1 << 20
)

var (
	errBaseURLRequired = errors.New("payment gateway base url is required")
	errAPIKeyRequired  = errors.New("payment gateway api key is required")
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the gateway's REST API with a bearer token. Every call is
// bounded by the configured timeout on top of the caller's context.
type Client struct {
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	http    Doer
	logg    *logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// NewClient validates the gateway configuration and builds a client.
func NewClient(cfg config.PaymentsConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.GatewayBaseURL)
	if raw == "" {
		return nil, errBaseURLRequired
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse gateway base url: %w", err)
	}
	if strings.TrimSpace(cfg.GatewayAPIKey) == "" {
		return nil, errAPIKeyRequired
	}
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: base,
		apiKey:  cfg.GatewayAPIKey,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		logg:    logg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Initiate asks the gateway to start collecting a payment.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*TransactionResponse, error) {
	var out TransactionResponse
	if err := c.do(ctx, http.MethodPost, "/payments/initiate", req, &out); err != nil {
		return nil, err
	}
	if out.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no transaction id")
	}
	return &out, nil
}

// Status polls the gateway for the current state of a transaction.
func (c *Client) Status(ctx context.Context, transactionID string) (*TransactionResponse, error) {
	var out TransactionResponse
	path := "/payments/" + url.PathEscape(transactionID) + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.TransactionID == "" {
		out.TransactionID = transactionID
	}
	return &out, nil
}

// Refund requests a refund on a completed transaction.
func (c *Client) Refund(ctx context.Context, transactionID string, req RefundRequest) (*RefundResponse, error) {
	var out RefundResponse
	path := "/payments/" + url.PathEscape(transactionID) + "/refund"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	if out.RefundID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no refund id")
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{"gateway_method": method, "gateway_path": path})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logg.Error(logCtx, "gateway request failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unreachable").
			WithDetails(map[string]any{"gateway_message": err.Error()})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read gateway response")
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"gateway_status": resp.StatusCode,
		"duration_ms":    time.Since(start).Milliseconds(),
	})

	if resp.StatusCode >= 300 {
		gwErr := errorFromResponse(resp.StatusCode, raw)
		c.logg.Warn(logCtx, "gateway rejected request")
		return gwErr
	}
	c.logg.Debug(logCtx, "gateway request completed")

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return nil
}

// errorFromResponse maps a non-2xx gateway reply onto a typed error carrying
// the gateway's own message.
func errorFromResponse(status int, raw []byte) error {
	message := gatewayMessage(raw)
	if message == "" {
		message = http.StatusText(status)
	}

	var code pkgerrors.Code
	switch {
	case status == http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		code = pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		code = pkgerrors.CodeDependency
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = pkgerrors.CodeDependency
	case status >= 400 && status < 500:
		code = pkgerrors.CodeValidation
	default:
		code = pkgerrors.CodeDependency
	}

	return pkgerrors.New(code, message).WithDetails(map[string]any{
		"gateway_status":  status,
		"gateway_message": message,
	})
}

func gatewayMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if body.Message != "" {
		return body.Message
	}
	switch v := body.Error.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return ""
}
