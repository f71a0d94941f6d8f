package notification_test

import (
	"errors"
	"testing"

	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/notification"
)

func TestCompareStates(t *testing.T) {
	cases := []struct {
		name     string
		current  models.TransactionState
		proposed models.TransactionState
		want     int
	}{
		{"initial to pending", models.TransactionInitial, models.TransactionPending, 1},
		{"initial to success", models.TransactionInitial, models.TransactionSuccess, 2},
		{"pending to success", models.TransactionPending, models.TransactionSuccess, 1},
		{"success to failure", models.TransactionSuccess, models.TransactionFailure, 1},
		{"same state", models.TransactionSuccess, models.TransactionSuccess, 0},
		{"failure to success", models.TransactionFailure, models.TransactionSuccess, -1},
		{"success to pending", models.TransactionSuccess, models.TransactionPending, -1},
		{"failure to initial", models.TransactionFailure, models.TransactionInitial, -3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := notification.CompareStates(tc.current, tc.proposed)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tc.want {
				t.Errorf("CompareStates(%s, %s) = %d, want %d", tc.current, tc.proposed, got, tc.want)
			}
		})
	}
}

func TestCompareStatesUnknownState(t *testing.T) {
	_, err := notification.CompareStates("Bogus", models.TransactionSuccess)
	if !errors.Is(err, notification.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for unknown current state, got %v", err)
	}

	_, err = notification.CompareStates(models.TransactionInitial, "Bogus")
	if !errors.Is(err, notification.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for unknown proposed state, got %v", err)
	}
}
