package engine

import (
	"errors"
	"fmt"

	"downtime-tracker-backend/internal/model"
)

// Validation failures surfaced by ApplyTransition. None are retried
// internally; ErrConcurrentModification is the one kind a caller may
// reasonably retry once after refreshing state.
var (
	ErrInvalidStatus          = errors.New("invalid status")
	ErrMissingComment         = errors.New("a comment is required when changing status")
	ErrNoOpTransition         = errors.New("equipment is already in the requested status")
	ErrMissingCategory        = errors.New("a downtime category is required when going down")
	ErrDuplicateOpenEvent     = errors.New("equipment already has an open downtime event")
	ErrNoOpenEventToClose     = errors.New("no open downtime event to close")
	ErrConcurrentModification = errors.New("transition conflicted with a concurrent change")
)

// TransitionError wraps one of the sentinel kinds with enough context for a
// caller to render a message. Use errors.Is against the sentinels above.
type TransitionError struct {
	EquipmentID int64
	Attempted   model.Status
	kind        error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("equipment %d -> %s: %v", e.EquipmentID, e.Attempted, e.kind)
}

func (e *TransitionError) Unwrap() error {
	return e.kind
}

func transitionErr(kind error, equipmentID int64, attempted model.Status) error {
	return &TransitionError{EquipmentID: equipmentID, Attempted: attempted, kind: kind}
}
