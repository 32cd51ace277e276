package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/store"
)

// Request describes one status transition. At defaults to the current
// instant when zero. Category is required only when going DOWN. Actor is
// the already-authorized acting identity; empty means anonymous.
type Request struct {
	NewStatus model.Status
	Comment   string
	Category  model.Category
	Actor     string
	At        time.Time
}

// Engine applies status transitions. It is the sole writer of equipment
// status, downtime events, and the status change log, and it re-reads
// current state inside a transaction on every call rather than caching it.
type Engine struct {
	store store.Store
}

// New creates a transition engine backed by the given store.
func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// ApplyTransition validates and applies one status change as a single
// atomic unit: append the audit log entry, open or close the downtime
// event, and update the equipment's status. On any failure nothing is
// persisted.
func (e *Engine) ApplyTransition(ctx context.Context, equipmentID int64, req Request) (*model.StatusChangeLog, error) {
	newStatus := model.Status(strings.ToUpper(strings.TrimSpace(string(req.NewStatus))))
	if !newStatus.Valid() {
		return nil, transitionErr(ErrInvalidStatus, equipmentID, newStatus)
	}

	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, transitionErr(ErrMissingComment, equipmentID, newStatus)
	}

	if newStatus == model.StatusDown && !req.Category.Valid() {
		return nil, transitionErr(ErrMissingCategory, equipmentID, newStatus)
	}

	changedAt := req.At
	if changedAt.IsZero() {
		changedAt = time.Now().UTC()
	}

	var entry *model.StatusChangeLog
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		// The row lock serializes transitions per equipment; different
		// equipment proceeds in parallel.
		eq, err := tx.GetEquipmentForUpdate(ctx, equipmentID)
		if err != nil {
			return err
		}

		// The open event is locked when closing so a racing transition
		// cannot double-close it.
		open, err := tx.FindOpenEvent(ctx, eq.ID, newStatus == model.StatusUp)
		if err != nil {
			return err
		}

		switch {
		case newStatus == model.StatusDown && open != nil:
			return transitionErr(ErrDuplicateOpenEvent, equipmentID, newStatus)
		case eq.Status == newStatus:
			return transitionErr(ErrNoOpTransition, equipmentID, newStatus)
		case newStatus == model.StatusUp && open == nil:
			return transitionErr(ErrNoOpenEventToClose, equipmentID, newStatus)
		}

		entry = &model.StatusChangeLog{
			EquipmentID: eq.ID,
			ChangedBy:   req.Actor,
			FromStatus:  eq.Status,
			ToStatus:    newStatus,
			Comment:     comment,
			ChangedAt:   changedAt,
		}
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}

		switch newStatus {
		case model.StatusDown:
			ev := &model.DowntimeEvent{
				EquipmentID:    eq.ID,
				Category:       req.Category,
				StartedAt:      changedAt,
				StartComment:   comment,
				CreatedBy:      entry.ChangedBy,
				StartedByLogID: &entry.ID,
			}
			if err := tx.CreateEvent(ctx, ev); err != nil {
				// The partial unique index closes the race window between
				// the existence check above and this insert.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return transitionErr(ErrConcurrentModification, eq.ID, newStatus)
				}
				return err
			}
		case model.StatusUp:
			if !changedAt.After(open.StartedAt) {
				return transitionErr(ErrConcurrentModification, eq.ID, newStatus)
			}
			open.EndedAt = &changedAt
			open.EndComment = comment
			open.ClosedBy = entry.ChangedBy
			open.EndedByLogID = &entry.ID
			if err := tx.CloseEvent(ctx, open); err != nil {
				return err
			}
		}

		eq.Status = newStatus
		eq.StatusUpdatedAt = changedAt
		return tx.SaveEquipmentStatus(ctx, eq)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
