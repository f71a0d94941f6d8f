package notification

import (
	"ms-reconciliation/internal/models"
)

// Provider event codes with transactional meaning.
const (
	EventAuthorisation  = "AUTHORISATION"
	EventCancellation   = "CANCELLATION"
	EventCapture        = "CAPTURE"
	EventCaptureFailed  = "CAPTURE_FAILED"
	EventCancelOrRefund = "CANCEL_OR_REFUND"
	EventRefund         = "REFUND"
	EventRefundFailed   = "REFUND_FAILED"
	EventChargeback     = "CHARGEBACK"
)

// additionalData key that disambiguates CANCEL_OR_REFUND.
const modificationActionKey = "modification.action"

type eventKey struct {
	EventCode string
	Success   bool
}

// EventOutcome is the transaction a notification implies. An empty Type
// means the event carries no transaction of its own.
type EventOutcome struct {
	Type  models.TransactionType
	State models.TransactionState
}

// Implied reports whether the outcome actually names a transaction.
func (o EventOutcome) Implied() bool {
	return o.Type != ""
}

// eventOutcomes maps (event code, success) to the implied transaction.
// CANCEL_OR_REFUND rows leave the type open; the provider only reveals
// whether it cancelled or refunded in additionalData, so ResolveOutcome
// fills the type in from there. Event codes without a row (informational
// events like REPORT_AVAILABLE) imply no transaction at all.
var eventOutcomes = map[eventKey]EventOutcome{
	{EventAuthorisation, true}:   {models.TransactionAuthorization, models.TransactionSuccess},
	{EventAuthorisation, false}:  {models.TransactionAuthorization, models.TransactionFailure},
	{EventCancellation, true}:    {models.TransactionCancelAuthorization, models.TransactionSuccess},
	{EventCancellation, false}:   {models.TransactionCancelAuthorization, models.TransactionFailure},
	{EventCapture, true}:         {models.TransactionCapture, models.TransactionSuccess},
	{EventCapture, false}:        {models.TransactionCapture, models.TransactionFailure},
	{EventCaptureFailed, true}:   {models.TransactionCapture, models.TransactionFailure},
	{EventCancelOrRefund, true}:  {"", models.TransactionSuccess},
	{EventCancelOrRefund, false}: {"", models.TransactionFailure},
	{EventRefund, true}:          {models.TransactionRefund, models.TransactionSuccess},
	{EventRefund, false}:         {models.TransactionRefund, models.TransactionFailure},
	{EventRefundFailed, true}:    {models.TransactionRefund, models.TransactionFailure},
	{EventChargeback, true}:      {models.TransactionChargeback, models.TransactionSuccess},
}

// ResolveOutcome resolves the notification against the event table and
// applies the CANCEL_OR_REFUND refinement. ok is false when the (event
// code, success) pair has no row, meaning the event is not transactional.
func ResolveOutcome(n *models.Notification) (EventOutcome, bool) {
	outcome, ok := eventOutcomes[eventKey{n.EventCode, n.Success.Bool()}]
	if !ok {
		return EventOutcome{}, false
	}
	if n.EventCode == EventCancelOrRefund {
		switch n.AdditionalData[modificationActionKey] {
		case "refund":
			outcome.Type = models.TransactionRefund
		case "cancel":
			outcome.Type = models.TransactionCancelAuthorization
		}
	}
	return outcome, true
}
