package models

import "time"

type ReconciliationStatus string

const (
	ReconciliationProcessed ReconciliationStatus = "processed"
	ReconciliationFailed    ReconciliationStatus = "failed"
)

// ReconciliationEvent is published after every engine run, successful or
// not, so downstream consumers can audit what happened to each delivery.
type ReconciliationEvent struct {
	ID                string               `json:"id"`
	PSPReference      string               `json:"psp_reference"`
	MerchantReference string               `json:"merchant_reference"`
	EventCode         string               `json:"event_code"`
	Success           bool                 `json:"success"`
	Status            ReconciliationStatus `json:"status"`
	Error             string               `json:"error,omitempty"`
	PaymentID         string               `json:"payment_id,omitempty"`
	Timestamp         time.Time            `json:"timestamp"`
}
