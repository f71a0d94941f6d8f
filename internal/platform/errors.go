package platform

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by FetchPaymentByID when the payment has
// disappeared between a conflict and the refetch.
var ErrNotFound = errors.New("payment not found")

// ConflictError is the store's rejection of an update submitted against a
// stale version. CurrentVersion is the version the store reported at the
// time of the rejection.
type ConflictError struct {
	SubmittedVersion int64
	CurrentVersion   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: submitted version %d, current version %d",
		e.SubmittedVersion, e.CurrentVersion)
}

// IsConflict reports whether err is a version conflict and returns it.
func IsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
