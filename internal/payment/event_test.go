package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/alheure/alheure/cmd/config"
)

func TestParseEvent_EntityNesting(t *testing.T) {
	raw := []byte(`{
		"name": "transaction.approved",
		"entity": {
			"id": 12345,
			"amount": 2000,
			"status": "approved",
			"custom_metadata": {"order_id": "9f0c2e9a-0b1d-4a6e-8f3c-2d1e5b7a9c01"},
			"customer": {"email": "client@example.com"}
		}
	}`)

	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}

	if event.Kind != EventSuccess {
		t.Errorf("Expected kind %q, got %q", EventSuccess, event.Kind)
	}
	if event.TransactionID != "12345" {
		t.Errorf("Expected transaction id 12345, got %q", event.TransactionID)
	}
	if event.Amount != 2000 {
		t.Errorf("Expected amount 2000, got %d", event.Amount)
	}
	if event.OrderRef != "9f0c2e9a-0b1d-4a6e-8f3c-2d1e5b7a9c01" {
		t.Errorf("Unexpected order ref %q", event.OrderRef)
	}
	if event.CustomerEmail != "client@example.com" {
		t.Errorf("Unexpected customer email %q", event.CustomerEmail)
	}
}

func TestParseEvent_DataObjectNesting(t *testing.T) {
	raw := []byte(`{
		"type": "transaction.canceled",
		"data": {
			"object": {
				"id": "tx_987",
				"amount": 1000,
				"last_error_code": "insufficient_funds"
			}
		}
	}`)

	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}

	if event.Kind != EventCancel {
		t.Errorf("Expected kind %q, got %q", EventCancel, event.Kind)
	}
	if event.TransactionID != "tx_987" {
		t.Errorf("Expected transaction id tx_987, got %q", event.TransactionID)
	}
	if event.ErrorCode != "insufficient_funds" {
		t.Errorf("Unexpected error code %q", event.ErrorCode)
	}
}

func TestParseEvent_Classification(t *testing.T) {
	cases := []struct {
		name string
		kind string
	}{
		{"transaction.approved", EventSuccess},
		{"transaction.completed", EventSuccess},
		{"transaction.successful", EventSuccess},
		{"transaction.canceled", EventCancel},
		{"transaction.declined", EventCancel},
		{"transaction.refunded", EventCancel},
		{"transaction.created", EventIgnored},
		{"customer.updated", EventIgnored},
		{"", EventIgnored},
	}

	for _, tc := range cases {
		event, err := ParseEvent([]byte(`{"name": "` + tc.name + `", "entity": {"amount": 100}}`))
		if err != nil {
			t.Fatalf("ParseEvent(%q) returned error: %v", tc.name, err)
		}
		if event.Kind != tc.kind {
			t.Errorf("Event %q classified as %q, expected %q", tc.name, event.Kind, tc.kind)
		}
	}
}

func TestParseEvent_OrderRefFallbackChain(t *testing.T) {
	cases := []struct {
		payload string
		ref     string
	}{
		{`{"name":"transaction.approved","entity":{"custom_metadata":{"order_id":"ref-a"},"custom_id":"ref-b","reference":"ref-c"}}`, "ref-a"},
		{`{"name":"transaction.approved","entity":{"custom_metadata":{"orderId":"ref-a"}}}`, "ref-a"},
		{`{"name":"transaction.approved","entity":{"custom_metadata":{"orderID":"ref-a"}}}`, "ref-a"},
		{`{"name":"transaction.approved","entity":{"custom_id":"ref-b","reference":"ref-c"}}`, "ref-b"},
		{`{"name":"transaction.approved","entity":{"reference":"ref-c"}}`, "ref-c"},
		{`{"name":"transaction.approved","entity":{"amount":500}}`, ""},
	}

	for _, tc := range cases {
		event, err := ParseEvent([]byte(tc.payload))
		if err != nil {
			t.Fatalf("ParseEvent returned error: %v", err)
		}
		if event.OrderRef != tc.ref {
			t.Errorf("Payload %s: expected ref %q, got %q", tc.payload, tc.ref, event.OrderRef)
		}
	}
}

func TestParseEvent_TransactionIDShapes(t *testing.T) {
	cases := []struct {
		payload string
		id      string
	}{
		{`{"name":"transaction.approved","entity":{"id":12345}}`, "12345"},
		{`{"name":"transaction.approved","entity":{"id":"12345"}}`, "12345"},
		{`{"name":"transaction.canceled","entity":{"id":"tx_987abc"}}`, "tx_987abc"},
		{`{"name":"transaction.approved","entity":{"id":{"nested":1}}}`, ""},
		{`{"name":"transaction.approved","entity":{"id":null}}`, ""},
		{`{"name":"transaction.approved","entity":{}}`, ""},
	}

	for _, tc := range cases {
		event, err := ParseEvent([]byte(tc.payload))
		if err != nil {
			t.Fatalf("ParseEvent(%s) returned error: %v", tc.payload, err)
		}
		if event.TransactionID != tc.id {
			t.Errorf("Payload %s: expected transaction id %q, got %q", tc.payload, tc.id, event.TransactionID)
		}
	}
}

func TestParseEvent_Malformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{invalid json`))
	if err != ErrMalformedPayload {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	config.WebhookSecret = "test-secret"
	defer func() { config.WebhookSecret = "" }()

	body := []byte(`{"name":"transaction.approved"}`)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	if !VerifySignature(body, valid) {
		t.Error("Expected valid signature to verify")
	}

	if VerifySignature(body, "deadbeef") {
		t.Error("Expected invalid signature to fail")
	}
}

func TestVerifySignature_NoSecret(t *testing.T) {
	config.WebhookSecret = ""

	if !VerifySignature([]byte("anything"), "") {
		t.Error("Expected verification to pass with no configured secret")
	}
}
