package payments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// SignWebhook returns the hex HMAC-SHA256 of "event.timestamp.data" where data
// is the compact JSON encoding of the payload's data object.
func SignWebhook(secret, event, timestamp string, data json.RawMessage) (string, error) {
	compact, err := compactJSON(data)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(event))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(compact)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func verifyWebhookSignature(secret string, payload WebhookPayload) bool {
	expected, err := SignWebhook(secret, payload.Event, payload.Timestamp.String(), payload.Data)
	if err != nil {
		return false
	}
	provided := strings.ToLower(strings.TrimSpace(payload.Signature))
	return hmac.Equal([]byte(expected), []byte(provided))
}

func compactJSON(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
