package notification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/notification"
)

func TestResolveOutcome(t *testing.T) {
	cases := []struct {
		name      string
		eventCode string
		success   bool
		wantType  models.TransactionType
		wantState models.TransactionState
	}{
		{"authorisation success", notification.EventAuthorisation, true, models.TransactionAuthorization, models.TransactionSuccess},
		{"authorisation failure", notification.EventAuthorisation, false, models.TransactionAuthorization, models.TransactionFailure},
		{"cancellation success", notification.EventCancellation, true, models.TransactionCancelAuthorization, models.TransactionSuccess},
		{"capture success", notification.EventCapture, true, models.TransactionCapture, models.TransactionSuccess},
		{"capture failed event", notification.EventCaptureFailed, true, models.TransactionCapture, models.TransactionFailure},
		{"refund failure", notification.EventRefund, false, models.TransactionRefund, models.TransactionFailure},
		{"chargeback", notification.EventChargeback, true, models.TransactionChargeback, models.TransactionSuccess},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &models.Notification{EventCode: tc.eventCode, Success: models.SuccessFlag(tc.success)}
			outcome, ok := notification.ResolveOutcome(n)
			assert.True(t, ok)
			assert.True(t, outcome.Implied())
			assert.Equal(t, tc.wantType, outcome.Type)
			assert.Equal(t, tc.wantState, outcome.State)
		})
	}
}

func TestResolveOutcomeInformationalEvent(t *testing.T) {
	n := &models.Notification{EventCode: "REPORT_AVAILABLE", Success: true}
	_, ok := notification.ResolveOutcome(n)
	assert.False(t, ok)
}

func TestResolveOutcomeCancelOrRefund(t *testing.T) {
	base := func(action string) *models.Notification {
		n := &models.Notification{EventCode: notification.EventCancelOrRefund, Success: true}
		if action != "" {
			n.AdditionalData = map[string]string{"modification.action": action}
		}
		return n
	}

	outcome, ok := notification.ResolveOutcome(base("refund"))
	assert.True(t, ok)
	assert.Equal(t, models.TransactionRefund, outcome.Type)
	assert.Equal(t, models.TransactionSuccess, outcome.State)

	outcome, ok = notification.ResolveOutcome(base("cancel"))
	assert.True(t, ok)
	assert.Equal(t, models.TransactionCancelAuthorization, outcome.Type)

	// Without the modification hint the row stays non-actionable.
	outcome, ok = notification.ResolveOutcome(base(""))
	assert.True(t, ok)
	assert.False(t, outcome.Implied())

	outcome, ok = notification.ResolveOutcome(base("capture"))
	assert.True(t, ok)
	assert.False(t, outcome.Implied())
}

func TestResolveOutcomeCancelOrRefundFailure(t *testing.T) {
	n := &models.Notification{
		EventCode:      notification.EventCancelOrRefund,
		Success:        false,
		AdditionalData: map[string]string{"modification.action": "refund"},
	}
	outcome, ok := notification.ResolveOutcome(n)
	assert.True(t, ok)
	assert.Equal(t, models.TransactionRefund, outcome.Type)
	assert.Equal(t, models.TransactionFailure, outcome.State)
}
