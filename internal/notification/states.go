package notification

import (
	"fmt"

	"ms-reconciliation/internal/models"
)

// stateOrdinals fixes the total order transaction states move along. A
// transaction only ever advances to a higher ordinal; notifications
// arriving late or twice therefore cannot regress it.
var stateOrdinals = map[models.TransactionState]int{
	models.TransactionInitial: 0,
	models.TransactionPending: 1,
	models.TransactionSuccess: 2,
	models.TransactionFailure: 3,
}

// CompareStates returns a positive number when proposed advances current,
// zero or negative when applying it would be a no-op or a regression. A
// state name outside the enumeration is an ErrInvalidState.
func CompareStates(current, proposed models.TransactionState) (int, error) {
	currentOrdinal, ok := stateOrdinals[current]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, current)
	}
	proposedOrdinal, ok := stateOrdinals[proposed]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, proposed)
	}
	return proposedOrdinal - currentOrdinal, nil
}
