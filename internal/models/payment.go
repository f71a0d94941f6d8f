package models

import (
	"time"
)

type TransactionType string

const (
	TransactionAuthorization       TransactionType = "Authorization"
	TransactionCancelAuthorization TransactionType = "CancelAuthorization"
	TransactionCapture             TransactionType = "Capture"
	TransactionRefund              TransactionType = "Refund"
	TransactionChargeback          TransactionType = "Chargeback"
)

type TransactionState string

const (
	TransactionInitial TransactionState = "Initial"
	TransactionPending TransactionState = "Pending"
	TransactionSuccess TransactionState = "Success"
	TransactionFailure TransactionState = "Failure"
)

// Custom field names the engine checks before reconciling. A payment that
// is missing either one has not finished the make-payment exchange yet.
const (
	FieldMakePaymentRequest  = "makePaymentRequest"
	FieldMakePaymentResponse = "makePaymentResponse"
)

// Payment is the provider-facing view of the platform's payment aggregate.
// Version implements the platform's optimistic concurrency: every applied
// update bumps it, and updates submitted against a stale version are
// rejected with the current one.
type Payment struct {
	ID                    string                 `json:"id"`
	Version               int64                  `json:"version"`
	Key                   string                 `json:"key,omitempty"`
	Transactions          []Transaction          `json:"transactions,omitempty"`
	InterfaceInteractions []InterfaceInteraction `json:"interfaceInteractions,omitempty"`
	MethodInfo            PaymentMethodInfo      `json:"paymentMethodInfo"`
	Custom                *CustomFields          `json:"custom,omitempty"`
}

// Transaction is one financial operation on the payment. InteractionID is
// the psp reference of the notification that created it, which is how later
// notifications for the same operation find it again.
type Transaction struct {
	ID            string           `json:"id"`
	Type          TransactionType  `json:"type"`
	State         TransactionState `json:"state"`
	InteractionID string           `json:"interactionId,omitempty"`
	Timestamp     time.Time        `json:"timestamp,omitempty"`
	Amount        *Amount          `json:"amount,omitempty"`
}

// InterfaceInteraction is one stored provider notification. Payload holds
// the serialized notification; duplicate deliveries are detected by
// comparing payloads byte for byte.
type InterfaceInteraction struct {
	ID        string    `json:"id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Type      string    `json:"type,omitempty"`
	Payload   string    `json:"notification"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type PaymentMethodInfo struct {
	Method string `json:"method,omitempty"`
	Name   string `json:"name,omitempty"`
}

type CustomFields struct {
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// HasCustomField reports whether the named custom field is set.
func (p *Payment) HasCustomField(name string) bool {
	if p.Custom == nil {
		return false
	}
	_, ok := p.Custom.Fields[name]
	return ok
}

// TransactionByInteractionID returns the transaction created by the given
// psp reference, or nil when the payment has none.
func (p *Payment) TransactionByInteractionID(interactionID string) *Transaction {
	for i := range p.Transactions {
		if p.Transactions[i].InteractionID == interactionID {
			return &p.Transactions[i]
		}
	}
	return nil
}
