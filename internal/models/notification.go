package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SuccessFlag is the provider's boolean. It arrives on the wire as the
// string "true"/"false" and must serialize back to the same form so that
// a re-serialized notification is byte-identical to the original.
type SuccessFlag bool

func (s SuccessFlag) MarshalJSON() ([]byte, error) {
	if s {
		return []byte(`"true"`), nil
	}
	return []byte(`"false"`), nil
}

func (s *SuccessFlag) UnmarshalJSON(data []byte) error {
	token := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	parsed, err := strconv.ParseBool(token)
	if err != nil {
		return fmt.Errorf("invalid success flag %q: %w", token, err)
	}
	*s = SuccessFlag(parsed)
	return nil
}

// Bool unwraps the flag for plain boolean logic.
func (s SuccessFlag) Bool() bool {
	return bool(s)
}

type Amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

// Notification is a single event item sent by the payment provider.
// Field names follow the provider's wire format. The recurring fields are
// empty on arrival; they are hoisted out of AdditionalData when sensitive
// data is removed before storage.
type Notification struct {
	EventCode           string            `json:"eventCode"`
	EventDate           string            `json:"eventDate,omitempty"`
	Success             SuccessFlag       `json:"success"`
	PSPReference        string            `json:"pspReference"`
	OriginalReference   string            `json:"originalReference,omitempty"`
	MerchantReference   string            `json:"merchantReference"`
	MerchantAccountCode string            `json:"merchantAccountCode,omitempty"`
	PaymentMethod       string            `json:"paymentMethod,omitempty"`
	Amount              *Amount           `json:"amount,omitempty"`
	Reason              string            `json:"reason,omitempty"`
	Operations          []string          `json:"operations,omitempty"`
	AdditionalData      map[string]string `json:"additionalData,omitempty"`

	RecurringDetailReference string `json:"recurringDetailReference,omitempty"`
	RecurringProcessingModel string `json:"recurringProcessingModel,omitempty"`
	ShopperReference         string `json:"shopperReference,omitempty"`
}

// Clone returns a deep copy. Mutating the copy (redaction, hoisting) must
// never leak into the notification other goroutines are still reading.
func (n *Notification) Clone() *Notification {
	copied := *n
	if n.Amount != nil {
		amount := *n.Amount
		copied.Amount = &amount
	}
	if n.Operations != nil {
		copied.Operations = append([]string(nil), n.Operations...)
	}
	if n.AdditionalData != nil {
		copied.AdditionalData = make(map[string]string, len(n.AdditionalData))
		for k, v := range n.AdditionalData {
			copied.AdditionalData[k] = v
		}
	}
	return &copied
}

// NotificationRequest is the webhook body: a batch of event items, each
// wrapped in a single-key object as the provider sends them.
type NotificationRequest struct {
	Live              string             `json:"live"`
	NotificationItems []NotificationItem `json:"notificationItems"`
}

type NotificationItem struct {
	NotificationRequestItem Notification `json:"NotificationRequestItem"`
}

// Serialize renders the notification exactly as it would be stored on the
// payment, which is also the form compared for duplicate detection.
func (n *Notification) Serialize() (string, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("serialize notification: %w", err)
	}
	return string(raw), nil
}
