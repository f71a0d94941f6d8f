package notification

import (
	"context"
	"fmt"
	"time"

	"ms-reconciliation/internal/models"
)

// resolvePayment looks the payment up by every reference the notification
// carries: the merchant reference the payment was created under, plus the
// provider-side reference a successful authorization rekeys it to. A
// missing payment is (nil, nil); only the store failing is an error.
func (s *ReconciliationService) resolvePayment(ctx context.Context, n *models.Notification) (*models.Payment, error) {
	keys := []string{n.MerchantReference}
	if ref := preferredReference(n); ref != "" && ref != n.MerchantReference {
		keys = append(keys, ref)
	}
	payment, err := s.Store.FetchPaymentByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch payment by keys %v: %w", keys, err)
	}
	return payment, nil
}

// resolveWithRetry runs resolvePayment under the resolution budget. The
// primary authorization event races the payment's creation, so it gets the
// full budget; for every other event a missing payment will not appear by
// waiting, so one attempt is all they get.
func (s *ReconciliationService) resolveWithRetry(ctx context.Context, n *models.Notification) (*models.Payment, error) {
	attempts := 1
	if n.EventCode == EventAuthorisation {
		attempts = s.ResolveAttempts
	}
	for attempt := 1; ; attempt++ {
		payment, err := s.resolvePayment(ctx, n)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			return payment, nil
		}
		if attempt >= attempts {
			return nil, nil
		}
		s.Logger.LogReconcile("RESOLVE", n.PSPReference,
			fmt.Sprintf("payment not found yet, attempt %d/%d", attempt, attempts))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.ResolveDelay):
		}
	}
}
