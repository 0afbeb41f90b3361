package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/alheure/alheure/cmd/config"
	"github.com/alheure/alheure/internal/logger"
	"go.uber.org/zap"
)

var (
	EventSuccess = "success"
	EventCancel  = "cancel"
	EventIgnored = "ignored"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// Event is one provider webhook call reduced to what reconciliation needs.
// OrderRef is best-effort and may be absent or wrong; CustomerEmail is
// optional.
type Event struct {
	Kind          string
	Name          string
	TransactionID string
	Amount        int64
	Status        string
	CustomerEmail string
	OrderRef      string
	ErrorCode     string
}

var successEvents = map[string]bool{
	"transaction.approved":   true,
	"transaction.completed":  true,
	"transaction.successful": true,
}

var cancelEvents = map[string]bool{
	"transaction.canceled": true,
	"transaction.declined": true,
	"transaction.refunded": true,
}

// The provider nests the transaction under "entity" or "data.object"
// depending on event version, and names the event "name" or "type".
type eventEnvelope struct {
	Name   string              `json:"name"`
	Type   string              `json:"type"`
	Entity *transactionPayload `json:"entity"`
	Data   struct {
		Object *transactionPayload `json:"object"`
	} `json:"data"`
}

// transactionID tolerates the id shapes the provider actually sends: JSON
// numbers and arbitrary strings. Anything else decodes to empty rather than
// failing the whole envelope.
type transactionID string

func (t *transactionID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*t = transactionID(asString)
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*t = transactionID(asNumber.String())
		return nil
	}

	*t = ""
	return nil
}

type transactionPayload struct {
	ID             transactionID          `json:"id"`
	Amount         int64                  `json:"amount"`
	Status         string                 `json:"status"`
	Reference      string                 `json:"reference"`
	CustomID       string                 `json:"custom_id"`
	CustomMetadata map[string]interface{} `json:"custom_metadata"`
	LastErrorCode  string                 `json:"last_error_code"`
	Customer       struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// extractOrderRef walks the known correlation fields in priority order:
// custom_metadata (any of the key spellings seen in the wild), then the
// legacy custom_id, then the generic reference.
func extractOrderRef(transaction *transactionPayload) string {
	for _, key := range []string{"order_id", "orderId", "orderID"} {
		if raw, ok := transaction.CustomMetadata[key]; ok {
			if ref, ok := raw.(string); ok && ref != "" {
				return ref
			}
		}
	}

	if transaction.CustomID != "" {
		return transaction.CustomID
	}

	if transaction.Reference != "" {
		return transaction.Reference
	}

	return ""
}

func ParseEvent(raw []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		logger.Log.Error("Failed to parse webhook payload", zap.Error(err))
		return Event{}, ErrMalformedPayload
	}

	name := envelope.Name
	if name == "" {
		name = envelope.Type
	}

	transaction := envelope.Entity
	if transaction == nil {
		transaction = envelope.Data.Object
	}
	if transaction == nil {
		transaction = &transactionPayload{}
	}

	event := Event{
		Kind:          EventIgnored,
		Name:          name,
		TransactionID: string(transaction.ID),
		Amount:        transaction.Amount,
		Status:        transaction.Status,
		CustomerEmail: transaction.Customer.Email,
		OrderRef:      extractOrderRef(transaction),
		ErrorCode:     transaction.LastErrorCode,
	}

	switch {
	case successEvents[name]:
		event.Kind = EventSuccess
	case cancelEvents[name]:
		event.Kind = EventCancel
	}

	return event, nil
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body against the
// header value. With no configured secret every payload passes; enforcement
// of a failed check is the caller's decision (see config.EnforceSignature).
func VerifySignature(raw []byte, signature string) bool {
	if config.WebhookSecret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(config.WebhookSecret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
