package platform

import (
	"context"

	"ms-reconciliation/internal/models"
)

// Store is the payment aggregate store the engine reconciles against. The
// remote platform implements it over HTTP (see Client); localstore
// implements it over a relational database for development and tests.
type Store interface {
	// FetchPaymentByKeys returns the payment whose key matches any of the
	// given keys, or (nil, nil) when none does. A missing payment is not
	// an error at this layer.
	FetchPaymentByKeys(ctx context.Context, keys []string) (*models.Payment, error)

	// FetchPaymentByID returns the payment or ErrNotFound.
	FetchPaymentByID(ctx context.Context, id string) (*models.Payment, error)

	// UpdatePayment applies the actions against the given version and
	// returns the refreshed payment. A stale version yields *ConflictError
	// carrying the store's current version.
	UpdatePayment(ctx context.Context, id string, version int64, actions []models.UpdateAction) (*models.Payment, error)
}
