package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/platform"
)

// Store is the bun-backed stand-in for the remote payment platform, used
// in development and tests. It honors the same contract: key lookups,
// id lookups, and version-checked updates that reject stale writers with
// the current version.
type Store struct {
	Bun    *bun.DB
	Logger *logger.Logger
}

func NewStore(bunDB *bun.DB, log *logger.Logger) *Store {
	return &Store{Bun: bunDB, Logger: log}
}

// ResetSchema (re)creates the payment tables. Tests and the seed command
// use it; the service itself runs SQL migrations instead.
func (s *Store) ResetSchema(ctx context.Context) error {
	tables := []interface{}{(*PaymentRow)(nil), (*TransactionRow)(nil), (*InteractionRow)(nil)}
	for _, model := range tables {
		if err := s.Bun.ResetModel(ctx, model); err != nil {
			return fmt.Errorf("reset table for %T: %w", model, err)
		}
	}
	return nil
}

// CreatePayment inserts a new payment aggregate at version 1, assigning an
// id when the caller did not.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	row := &PaymentRow{
		ID:           payment.ID,
		Version:      1,
		Key:          payment.Key,
		Method:       payment.MethodInfo.Method,
		MethodName:   payment.MethodInfo.Name,
		CustomFields: marshalCustomFields(payment.Custom),
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.Bun.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return s.FetchPaymentByID(ctx, payment.ID)
}

func (s *Store) FetchPaymentByKeys(ctx context.Context, keys []string) (*models.Payment, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	row := new(PaymentRow)
	err := s.Bun.NewSelect().Model(row).
		Where("key IN (?)", bun.In(keys)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select payment by keys: %w", err)
	}
	return s.loadPayment(ctx, s.Bun, row)
}

func (s *Store) FetchPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	row := new(PaymentRow)
	err := s.Bun.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, platform.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select payment by id: %w", err)
	}
	return s.loadPayment(ctx, s.Bun, row)
}

// UpdatePayment applies the actions in one database transaction. The
// version guard and the bump are a single conditional UPDATE, so two
// racing writers on the same version cannot both land: the loser's
// statement matches no row once the winner commits, and a ConflictError
// carrying the committed version comes back.
func (s *Store) UpdatePayment(ctx context.Context, id string, version int64, actions []models.UpdateAction) (*models.Payment, error) {
	var updated *models.Payment

	err := s.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Bump first. Under read-committed isolation a concurrent writer
		// blocks on the row lock here and re-evaluates the WHERE against
		// the committed row, so a read-then-check guard is not enough.
		res, err := tx.NewUpdate().Model((*PaymentRow)(nil)).
			Set("version = ?", version+1).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Where("version = ?", version).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("bump payment version: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			current := new(PaymentRow)
			err := tx.NewSelect().Model(current).Where("id = ?", id).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("payment %s: %w", id, platform.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("select payment for conflict report: %w", err)
			}
			return &platform.ConflictError{SubmittedVersion: version, CurrentVersion: current.Version}
		}

		row := new(PaymentRow)
		if err := tx.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
			return fmt.Errorf("select payment for update: %w", err)
		}

		for _, action := range actions {
			if err := s.applyAction(ctx, tx, row, action); err != nil {
				return err
			}
		}

		if _, err := tx.NewUpdate().Model(row).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update payment row: %w", err)
		}

		updated, err = s.loadPayment(ctx, tx, row)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.LogStore("UPDATE", id, fmt.Sprintf("applied %d action(s), version %d -> %d", len(actions), version, version+1))
	}
	return updated, nil
}

func (s *Store) applyAction(ctx context.Context, tx bun.Tx, row *PaymentRow, action models.UpdateAction) error {
	switch a := action.(type) {
	case models.AddInterfaceInteractionAction:
		interaction := &InteractionRow{
			ID:        uuid.New().String(),
			PaymentID: row.ID,
			Status:    a.Status,
			Type:      a.Type,
			Payload:   a.Payload,
			CreatedAt: a.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(interaction).Exec(ctx); err != nil {
			return fmt.Errorf("insert interface interaction: %w", err)
		}

	case models.AddTransactionAction:
		transaction := &TransactionRow{
			ID:            uuid.New().String(),
			PaymentID:     row.ID,
			Type:          string(a.Type),
			State:         string(a.State),
			InteractionID: a.InteractionID,
		}
		if a.Timestamp != nil {
			transaction.Timestamp = *a.Timestamp
		}
		if a.Amount != nil {
			transaction.AmountValue = a.Amount.Value
			transaction.AmountCode = a.Amount.Currency
		}
		if _, err := tx.NewInsert().Model(transaction).Exec(ctx); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

	case models.ChangeTransactionStateAction:
		result, err := tx.NewUpdate().Model((*TransactionRow)(nil)).
			Set("state = ?", string(a.State)).
			Where("id = ? AND payment_id = ?", a.TransactionID, row.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("change transaction state: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return fmt.Errorf("change transaction state: transaction %s not found on payment %s", a.TransactionID, row.ID)
		}

	case models.ChangeTransactionTimestampAction:
		result, err := tx.NewUpdate().Model((*TransactionRow)(nil)).
			Set("timestamp = ?", a.Timestamp).
			Where("id = ? AND payment_id = ?", a.TransactionID, row.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("change transaction timestamp: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return fmt.Errorf("change transaction timestamp: transaction %s not found on payment %s", a.TransactionID, row.ID)
		}

	case models.SetKeyAction:
		row.Key = a.Key

	case models.SetMethodInfoMethodAction:
		row.Method = a.Method

	case models.SetMethodInfoNameAction:
		row.MethodName = a.Name

	default:
		return fmt.Errorf("unsupported update action %q", action.Action())
	}
	return nil
}

func (s *Store) loadPayment(ctx context.Context, db bun.IDB, row *PaymentRow) (*models.Payment, error) {
	var transactions []TransactionRow
	if err := db.NewSelect().Model(&transactions).
		Where("payment_id = ?", row.ID).
		Order("timestamp ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	var interactions []InteractionRow
	if err := db.NewSelect().Model(&interactions).
		Where("payment_id = ?", row.ID).
		Order("created_at ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select interactions: %w", err)
	}

	return toPayment(row, transactions, interactions), nil
}
