package localstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"ms-reconciliation/internal/models"
)

// --- Rows ---

type PaymentRow struct {
	bun.BaseModel `bun:"table:payments"`
	ID            string    `bun:"id,pk"`
	Version       int64     `bun:"version,notnull"`
	Key           string    `bun:"key,nullzero"`
	Method        string    `bun:"method,nullzero"`
	MethodName    string    `bun:"method_name,nullzero"`
	CustomFields  string    `bun:"custom_fields,nullzero"` // JSON object
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero"`
}

type TransactionRow struct {
	bun.BaseModel `bun:"table:payment_transactions"`
	ID            string    `bun:"id,pk"`
	PaymentID     string    `bun:"payment_id,notnull"`
	Type          string    `bun:"type,notnull"`
	State         string    `bun:"state,notnull"`
	InteractionID string    `bun:"interaction_id,nullzero"`
	Timestamp     time.Time `bun:"timestamp,nullzero"`
	AmountValue   int64     `bun:"amount_value"`
	AmountCode    string    `bun:"amount_currency,nullzero"`
}

type InteractionRow struct {
	bun.BaseModel `bun:"table:payment_interactions"`
	ID            string    `bun:"id,pk"`
	PaymentID     string    `bun:"payment_id,notnull"`
	Status        string    `bun:"status,nullzero"`
	Type          string    `bun:"type,nullzero"`
	Payload       string    `bun:"payload,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// --- Row <-> model conversion ---

func toPayment(row *PaymentRow, transactions []TransactionRow, interactions []InteractionRow) *models.Payment {
	payment := &models.Payment{
		ID:      row.ID,
		Version: row.Version,
		Key:     row.Key,
		MethodInfo: models.PaymentMethodInfo{
			Method: row.Method,
			Name:   row.MethodName,
		},
	}

	if row.CustomFields != "" {
		fields := map[string]interface{}{}
		if err := json.Unmarshal([]byte(row.CustomFields), &fields); err == nil && len(fields) > 0 {
			payment.Custom = &models.CustomFields{Fields: fields}
		}
	}

	for _, tx := range transactions {
		transaction := models.Transaction{
			ID:            tx.ID,
			Type:          models.TransactionType(tx.Type),
			State:         models.TransactionState(tx.State),
			InteractionID: tx.InteractionID,
			Timestamp:     tx.Timestamp,
		}
		if tx.AmountCode != "" || tx.AmountValue != 0 {
			transaction.Amount = &models.Amount{Value: tx.AmountValue, Currency: tx.AmountCode}
		}
		payment.Transactions = append(payment.Transactions, transaction)
	}

	for _, interaction := range interactions {
		payment.InterfaceInteractions = append(payment.InterfaceInteractions, models.InterfaceInteraction{
			ID:        interaction.ID,
			Status:    interaction.Status,
			Type:      interaction.Type,
			Payload:   interaction.Payload,
			CreatedAt: interaction.CreatedAt,
		})
	}

	return payment
}

func marshalCustomFields(custom *models.CustomFields) string {
	if custom == nil || len(custom.Fields) == 0 {
		return ""
	}
	raw, err := json.Marshal(custom.Fields)
	if err != nil {
		return ""
	}
	return string(raw)
}
