package notification

import (
	"fmt"
	"strings"
	"time"

	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/utils"
)

// InteractionTypeNotification tags interface interactions written by this
// service, distinguishing them from interactions other tools record.
const InteractionTypeNotification = "payment-provider-notification"

// additionalData keys hoisted to top-level notification fields before the
// bulk payload is redacted.
const (
	recurringDetailKey     = "recurring.recurringDetailReference"
	recurringProcessingKey = "recurringProcessingModel"
	shopperReferenceKey    = "recurring.shopperReference"
)

// WarnLogger is the one logging method planning needs.
type WarnLogger interface {
	Warn(category, message string)
}

// PlannerConfig carries every knob planning depends on, so that
// PlanUpdateActions stays a pure function of (payment, notification,
// config). RemoveSensitiveData changes only what gets stored and logged,
// never which actions come out.
type PlannerConfig struct {
	RemoveSensitiveData bool
	MethodDisplayNames  map[string]string
	Log                 WarnLogger
}

// DefaultMethodDisplayNames localizes the provider's payment method codes
// for the payment's method info.
var DefaultMethodDisplayNames = map[string]string{
	"visa":            "Credit Card Visa",
	"mc":              "Credit Card Mastercard",
	"amex":            "Credit Card American Express",
	"paypal":          "PayPal",
	"ideal":           "iDEAL",
	"klarna":          "Klarna",
	"sepadirectdebit": "SEPA Direct Debit",
}

// PlanUpdateActions computes the update actions one notification implies
// for the given payment snapshot. The result may be empty: a redelivered
// notification whose effects are already on the payment plans to nothing.
//
// Actions come out in a fixed order: the interaction record first, then
// transaction changes, then the key, then method info.
func PlanUpdateActions(payment *models.Payment, n *models.Notification, cfg PlannerConfig) ([]models.UpdateAction, error) {
	var actions []models.UpdateAction

	serialized, err := storableNotification(n, cfg).Serialize()
	if err != nil {
		return nil, err
	}
	if !hasInteraction(payment, serialized) {
		actions = append(actions, models.AddInterfaceInteractionAction{
			Status:    interactionStatus(n),
			Type:      InteractionTypeNotification,
			Payload:   serialized,
			CreatedAt: time.Now().UTC(),
		})
	}

	outcome, ok := ResolveOutcome(n)
	if ok && outcome.Implied() {
		timestamp := eventTimestamp(n, cfg)
		if existing := payment.TransactionByInteractionID(n.PSPReference); existing == nil {
			ts := timestamp
			actions = append(actions, models.AddTransactionAction{
				Type:          outcome.Type,
				State:         outcome.State,
				InteractionID: n.PSPReference,
				Amount:        n.Amount,
				Timestamp:     &ts,
			})
		} else {
			advance, err := CompareStates(existing.State, outcome.State)
			if err != nil {
				return nil, err
			}
			if advance > 0 {
				actions = append(actions,
					models.ChangeTransactionStateAction{TransactionID: existing.ID, State: outcome.State},
					models.ChangeTransactionTimestampAction{TransactionID: existing.ID, Timestamp: timestamp},
				)
			}
		}
		if n.Success.Bool() {
			if ref := preferredReference(n); ref != "" && ref != payment.Key {
				actions = append(actions, models.SetKeyAction{Key: ref})
			}
		}
	}

	if n.PaymentMethod != "" && n.PaymentMethod != payment.MethodInfo.Method {
		actions = append(actions, models.SetMethodInfoMethodAction{Method: n.PaymentMethod})
		if name, ok := cfg.MethodDisplayNames[n.PaymentMethod]; ok {
			actions = append(actions, models.SetMethodInfoNameAction{Name: name})
		}
	}

	return actions, nil
}

// preferredReference is the identifier the payment should end up keyed by:
// the original reference when the provider set one, else the psp reference.
func preferredReference(n *models.Notification) string {
	if n.OriginalReference != "" {
		return n.OriginalReference
	}
	return n.PSPReference
}

// storableNotification renders the copy of the notification that gets
// persisted on the payment. With redaction on, the recurring entries are
// hoisted out of additionalData first so they survive its removal, and the
// failure reason goes too. The same form feeds the duplicate check, so a
// redelivery compares equal regardless of the flag.
func storableNotification(n *models.Notification, cfg PlannerConfig) *models.Notification {
	if !cfg.RemoveSensitiveData {
		return n
	}
	redacted := n.Clone()
	if data := redacted.AdditionalData; data != nil {
		redacted.RecurringDetailReference = data[recurringDetailKey]
		redacted.RecurringProcessingModel = data[recurringProcessingKey]
		redacted.ShopperReference = data[shopperReferenceKey]
	}
	redacted.AdditionalData = nil
	redacted.Reason = ""
	return redacted
}

func hasInteraction(payment *models.Payment, serialized string) bool {
	for _, interaction := range payment.InterfaceInteractions {
		if interaction.Payload == serialized {
			return true
		}
	}
	return false
}

func interactionStatus(n *models.Notification) string {
	if n.Success.Bool() {
		return n.EventCode
	}
	return strings.ToLower(n.EventCode) + "_failed"
}

// eventTimestamp converts the provider's event date to UTC. Unparseable
// dates fall back to the current time; that is worth a warning but must
// not fail the notification.
func eventTimestamp(n *models.Notification, cfg PlannerConfig) time.Time {
	parsed, err := utils.ParseEventDate(n.EventDate)
	if err != nil {
		if cfg.Log != nil {
			cfg.Log.Warn("PLANNER", fmt.Sprintf("could not parse event date %q for %s, using current time: %v",
				n.EventDate, n.PSPReference, err))
		}
		return time.Now().UTC()
	}
	return parsed
}
