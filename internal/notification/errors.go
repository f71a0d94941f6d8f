package notification

import (
	"errors"
	"fmt"
)

// Reconciliation failures are contained per notification: the engine
// records and reports them, one delivery's failure never crashes the
// process or touches sibling deliveries.
var (
	// ErrInvalidState marks a transaction state outside the known
	// enumeration. This is a data or configuration defect, never retried.
	ErrInvalidState = errors.New("unknown transaction state")

	// ErrNotFound means no payment matched the notification's references
	// after the resolution budget ran out.
	ErrNotFound = errors.New("no payment found for notification")

	// ErrNotPaymentReady means the payment exists but has not completed
	// the make-payment exchange, so there is nothing to reconcile against.
	ErrNotPaymentReady = errors.New("payment is missing the make-payment custom fields")
)

// ValidationError reports a notification rejected by the signature check
// before any store access.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "notification rejected: " + e.Message
}

// TooManyConflictsError reports an update abandoned because every attempt
// in the retry budget hit a version conflict.
type TooManyConflictsError struct {
	Attempts         int
	SubmittedVersion int64
	CurrentVersion   int64
}

func (e *TooManyConflictsError) Error() string {
	return fmt.Sprintf("update abandoned after %d version conflicts: last submitted version %d, store reports version %d",
		e.Attempts, e.SubmittedVersion, e.CurrentVersion)
}
