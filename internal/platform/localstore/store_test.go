package localstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/notification"
	"ms-reconciliation/internal/platform"
	"ms-reconciliation/internal/platform/localstore"
)

func setupStore(t *testing.T) *localstore.Store {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	store := localstore.NewStore(bunDB, nil)
	require.NoError(t, store.ResetSchema(context.Background()))
	return store
}

func seedPayment(t *testing.T, store *localstore.Store, key string) *models.Payment {
	t.Helper()
	payment, err := store.CreatePayment(context.Background(), &models.Payment{
		Key: key,
		Custom: &models.CustomFields{Fields: map[string]interface{}{
			models.FieldMakePaymentRequest:  "{}",
			models.FieldMakePaymentResponse: "{}",
		}},
	})
	require.NoError(t, err)
	return payment
}

func TestCreateAndFetchPayment(t *testing.T) {
	store := setupStore(t)
	created := seedPayment(t, store, "M1")

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)
	assert.True(t, created.HasCustomField(models.FieldMakePaymentRequest))

	found, err := store.FetchPaymentByKeys(context.Background(), []string{"M1", "P1"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := store.FetchPaymentByKeys(context.Background(), []string{"nope"})
	require.NoError(t, err)
	assert.Nil(t, missing, "a missing payment is not an error")
}

func TestFetchPaymentByIDNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.FetchPaymentByID(context.Background(), "gone")
	require.Error(t, err)
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestUpdatePaymentAppliesActions(t *testing.T) {
	store := setupStore(t)
	payment := seedPayment(t, store, "M1")
	now := time.Now().UTC().Round(time.Second)

	updated, err := store.UpdatePayment(context.Background(), payment.ID, payment.Version, []models.UpdateAction{
		models.AddInterfaceInteractionAction{
			Status:    "AUTHORISATION",
			Type:      notification.InteractionTypeNotification,
			Payload:   `{"eventCode":"AUTHORISATION"}`,
			CreatedAt: now,
		},
		models.AddTransactionAction{
			Type:          models.TransactionAuthorization,
			State:         models.TransactionSuccess,
			InteractionID: "P1",
			Amount:        &models.Amount{Value: 1000, Currency: "EUR"},
			Timestamp:     &now,
		},
		models.SetKeyAction{Key: "P1"},
		models.SetMethodInfoMethodAction{Method: "visa"},
		models.SetMethodInfoNameAction{Name: "Credit Card Visa"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "P1", updated.Key)
	assert.Equal(t, "visa", updated.MethodInfo.Method)
	assert.Equal(t, "Credit Card Visa", updated.MethodInfo.Name)

	require.Len(t, updated.InterfaceInteractions, 1)
	assert.Equal(t, "AUTHORISATION", updated.InterfaceInteractions[0].Status)

	require.Len(t, updated.Transactions, 1)
	tx := updated.Transactions[0]
	assert.Equal(t, models.TransactionAuthorization, tx.Type)
	assert.Equal(t, models.TransactionSuccess, tx.State)
	assert.Equal(t, "P1", tx.InteractionID)
	require.NotNil(t, tx.Amount)
	assert.Equal(t, int64(1000), tx.Amount.Value)
	assert.NotEmpty(t, tx.ID, "the store assigns transaction ids")

	// The rekeyed payment is found under its new key.
	found, err := store.FetchPaymentByKeys(context.Background(), []string{"P1"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, payment.ID, found.ID)
}

func TestUpdatePaymentVersionConflict(t *testing.T) {
	store := setupStore(t)
	payment := seedPayment(t, store, "M1")

	_, err := store.UpdatePayment(context.Background(), payment.ID, payment.Version, []models.UpdateAction{
		models.SetKeyAction{Key: "P1"},
	})
	require.NoError(t, err)

	// Same version again: the first update bumped it to 2.
	_, err = store.UpdatePayment(context.Background(), payment.ID, payment.Version, []models.UpdateAction{
		models.SetKeyAction{Key: "P2"},
	})
	require.Error(t, err)

	conflict, ok := platform.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, int64(1), conflict.SubmittedVersion)
	assert.Equal(t, int64(2), conflict.CurrentVersion)
}

func TestRacingWritersExactlyOneWins(t *testing.T) {
	store := setupStore(t)
	payment := seedPayment(t, store, "M1")

	// Both writers resolved the payment at version 1 before either wrote.
	// The guard is a conditional bump, not read-then-check, so the loser
	// must conflict even though its snapshot passed validation.
	winner, err := store.UpdatePayment(context.Background(), payment.ID, payment.Version, []models.UpdateAction{
		models.SetKeyAction{Key: "P1"},
		models.SetMethodInfoMethodAction{Method: "visa"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), winner.Version)

	_, err = store.UpdatePayment(context.Background(), payment.ID, payment.Version, []models.UpdateAction{
		models.SetKeyAction{Key: "P9"},
		models.AddTransactionAction{
			Type:  models.TransactionRefund,
			State: models.TransactionSuccess,
		},
	})
	require.Error(t, err)
	conflict, ok := platform.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, payment.Version, conflict.SubmittedVersion)
	assert.Equal(t, int64(2), conflict.CurrentVersion)

	// The losing writer left no trace: one bump, the winner's fields intact.
	fresh, err := store.FetchPaymentByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Version)
	assert.Equal(t, "P1", fresh.Key)
	assert.Equal(t, "visa", fresh.MethodInfo.Method)
	assert.Empty(t, fresh.Transactions)
}

func TestChangeTransactionStateAndTimestamp(t *testing.T) {
	store := setupStore(t)
	payment := seedPayment(t, store, "M1")
	earlier := time.Now().UTC().Add(-time.Hour).Round(time.Second)

	updated, err := store.UpdatePayment(context.Background(), payment.ID, payment.Version, []models.UpdateAction{
		models.AddTransactionAction{
			Type:          models.TransactionCapture,
			State:         models.TransactionPending,
			InteractionID: "P2",
			Timestamp:     &earlier,
		},
	})
	require.NoError(t, err)
	txID := updated.Transactions[0].ID

	later := time.Now().UTC().Round(time.Second)
	updated, err = store.UpdatePayment(context.Background(), payment.ID, updated.Version, []models.UpdateAction{
		models.ChangeTransactionStateAction{TransactionID: txID, State: models.TransactionSuccess},
		models.ChangeTransactionTimestampAction{TransactionID: txID, Timestamp: later},
	})
	require.NoError(t, err)

	require.Len(t, updated.Transactions, 1)
	assert.Equal(t, models.TransactionSuccess, updated.Transactions[0].State)
	assert.WithinDuration(t, later, updated.Transactions[0].Timestamp, time.Second)

	// Unknown transaction id fails and rolls back the whole update.
	_, err = store.UpdatePayment(context.Background(), payment.ID, updated.Version, []models.UpdateAction{
		models.ChangeTransactionStateAction{TransactionID: "missing", State: models.TransactionFailure},
	})
	require.Error(t, err)

	fresh, err := store.FetchPaymentByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Version, fresh.Version, "a failed update must not bump the version")
}

func TestEndToEndReconciliation(t *testing.T) {
	store := setupStore(t)
	payment := seedPayment(t, store, "M1")

	svc := notification.NewReconciliationService(store, nil, nil, logger.NewLogger(), notification.PlannerConfig{
		RemoveSensitiveData: true,
		MethodDisplayNames:  notification.DefaultMethodDisplayNames,
	})
	svc.ResolveDelay = time.Millisecond

	n := &models.Notification{
		EventCode:         notification.EventAuthorisation,
		EventDate:         "2026-05-01T10:30:00+02:00",
		Success:           true,
		PSPReference:      "P1",
		MerchantReference: "M1",
		PaymentMethod:     "visa",
		Amount:            &models.Amount{Value: 1000, Currency: "EUR"},
	}

	require.NoError(t, svc.ProcessNotification(context.Background(), n))

	// The aggregate was rekeyed to P1; resolution by either key still works.
	reconciled, err := store.FetchPaymentByKeys(context.Background(), []string{"M1", "P1"})
	require.NoError(t, err)
	require.NotNil(t, reconciled)
	assert.Equal(t, payment.ID, reconciled.ID)
	assert.Len(t, reconciled.InterfaceInteractions, 1)
	require.Len(t, reconciled.Transactions, 1)
	assert.Equal(t, models.TransactionAuthorization, reconciled.Transactions[0].Type)
	assert.Equal(t, models.TransactionSuccess, reconciled.Transactions[0].State)
	assert.Equal(t, "visa", reconciled.MethodInfo.Method)

	// Redelivery: nothing changes, not even the version.
	require.NoError(t, svc.ProcessNotification(context.Background(), n))
	again, err := store.FetchPaymentByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, reconciled.Version, again.Version)
	assert.Len(t, again.InterfaceInteractions, 1)
	assert.Len(t, again.Transactions, 1)

	// A follow-up capture lands on the same payment through the new key.
	capture := &models.Notification{
		EventCode:         notification.EventCapture,
		EventDate:         "2026-05-01T11:00:00+02:00",
		Success:           true,
		PSPReference:      "P2",
		OriginalReference: "P1",
		MerchantReference: "M1",
		Amount:            &models.Amount{Value: 1000, Currency: "EUR"},
	}
	require.NoError(t, svc.ProcessNotification(context.Background(), capture))

	final, err := store.FetchPaymentByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Len(t, final.Transactions, 2)
	assert.Len(t, final.InterfaceInteractions, 2)
}
