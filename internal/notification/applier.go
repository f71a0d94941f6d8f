package notification

import (
	"context"
	"fmt"

	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/platform"
)

// maxUpdateAttempts bounds how many times one notification may submit an
// update before giving up on version conflicts.
const maxUpdateAttempts = 20

// applyUpdates plans and applies the notification against the payment,
// absorbing version conflicts. Each attempt replans from the freshest
// snapshot: another writer may have landed the same changes in the
// meantime, in which case the plan comes back empty and there is nothing
// left to submit.
func (s *ReconciliationService) applyUpdates(ctx context.Context, payment *models.Payment, n *models.Notification) error {
	snapshot := payment
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		actions, err := PlanUpdateActions(snapshot, n, s.Planner)
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			s.Logger.LogReconcile("APPLY", n.PSPReference, "payment already up to date")
			return nil
		}

		_, err = s.Store.UpdatePayment(ctx, snapshot.ID, snapshot.Version, actions)
		if err == nil {
			s.Logger.LogReconcile("APPLY", n.PSPReference,
				fmt.Sprintf("applied %d update action(s) to payment %s at version %d", len(actions), snapshot.ID, snapshot.Version))
			return nil
		}

		conflict, ok := platform.IsConflict(err)
		if !ok {
			return fmt.Errorf("update payment %s with actions %s: %w", snapshot.ID, models.MarshalActions(actions), err)
		}
		if attempt == maxUpdateAttempts {
			return &TooManyConflictsError{
				Attempts:         attempt,
				SubmittedVersion: snapshot.Version,
				CurrentVersion:   conflict.CurrentVersion,
			}
		}

		s.Logger.LogReconcile("APPLY", n.PSPReference,
			fmt.Sprintf("version conflict on payment %s (submitted %d, current %d), refetching", snapshot.ID, snapshot.Version, conflict.CurrentVersion))
		fresh, err := s.Store.FetchPaymentByID(ctx, snapshot.ID)
		if err != nil {
			return fmt.Errorf("refetch payment %s after version conflict: %w", snapshot.ID, err)
		}
		snapshot = fresh
	}
	return nil
}
