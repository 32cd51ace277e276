package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"downtime-tracker-backend/internal/model"
)

// ErrNotFound is returned for point lookups of rows that do not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Transaction runs fn against a transactional Store. All writes made by
	// the transition engine go through this so that a failed validation
	// leaves no partial state.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetEquipment(ctx context.Context, id int64) (*model.Equipment, error)
	// GetEquipmentForUpdate takes a row lock on the equipment, serializing
	// concurrent transitions for the same unit.
	GetEquipmentForUpdate(ctx context.Context, id int64) (*model.Equipment, error)
	SaveEquipmentStatus(ctx context.Context, eq *model.Equipment) error

	// FindOpenEvent returns the equipment's open downtime event, or nil if
	// there is none. With forUpdate it takes a row lock so only one
	// transaction can observe and close a given open event.
	FindOpenEvent(ctx context.Context, equipmentID int64, forUpdate bool) (*model.DowntimeEvent, error)
	CreateEvent(ctx context.Context, ev *model.DowntimeEvent) error
	CloseEvent(ctx context.Context, ev *model.DowntimeEvent) error

	AppendLog(ctx context.Context, entry *model.StatusChangeLog) error
	ListLogs(ctx context.Context, equipmentID int64, limit int) ([]model.StatusChangeLog, error)

	ListDepartments(ctx context.Context) ([]model.Department, error)
	GetDepartmentByCode(ctx context.Context, code string) (*model.Department, error)
	ListEquipment(ctx context.Context, scope Scope) ([]model.Equipment, error)
	FindEventsInWindow(ctx context.Context, q EventQuery) ([]model.DowntimeEvent, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// lockForUpdate appends FOR UPDATE on dialects that support it. sqlite
// serializes writers on its own, so the clause is skipped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *gormStore) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	return s.getEquipment(ctx, id, false)
}

func (s *gormStore) GetEquipmentForUpdate(ctx context.Context, id int64) (*model.Equipment, error) {
	return s.getEquipment(ctx, id, true)
}

func (s *gormStore) getEquipment(ctx context.Context, id int64, forUpdate bool) (*model.Equipment, error) {
	tx := s.db.WithContext(ctx)
	if forUpdate {
		tx = lockForUpdate(tx)
	}
	var eq model.Equipment
	if err := tx.First(&eq, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("equipment %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch equipment %d: %w", id, err)
	}
	return &eq, nil
}

func (s *gormStore) SaveEquipmentStatus(ctx context.Context, eq *model.Equipment) error {
	err := s.db.WithContext(ctx).Model(eq).
		Select("status", "status_updated_at", "updated_at").
		Updates(map[string]any{
			"status":            eq.Status,
			"status_updated_at": eq.StatusUpdatedAt,
			"updated_at":        time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update status of equipment %d: %w", eq.ID, err)
	}
	return nil
}

func (s *gormStore) FindOpenEvent(ctx context.Context, equipmentID int64, forUpdate bool) (*model.DowntimeEvent, error) {
	tx := s.db.WithContext(ctx)
	if forUpdate {
		tx = lockForUpdate(tx)
	}
	var ev model.DowntimeEvent
	err := tx.Where("equipment_id = ? AND ended_at IS NULL", equipmentID).
		Order("started_at DESC").
		First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open event for equipment %d: %w", equipmentID, err)
	}
	return &ev, nil
}

func (s *gormStore) CreateEvent(ctx context.Context, ev *model.DowntimeEvent) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("failed to create downtime event for equipment %d: %w", ev.EquipmentID, err)
	}
	return nil
}

func (s *gormStore) CloseEvent(ctx context.Context, ev *model.DowntimeEvent) error {
	err := s.db.WithContext(ctx).Model(ev).
		Select("ended_at", "end_comment", "closed_by", "ended_by_log_id", "updated_at").
		Updates(map[string]any{
			"ended_at":        ev.EndedAt,
			"end_comment":     ev.EndComment,
			"closed_by":       ev.ClosedBy,
			"ended_by_log_id": ev.EndedByLogID,
			"updated_at":      time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to close downtime event %d: %w", ev.ID, err)
	}
	return nil
}

func (s *gormStore) AppendLog(ctx context.Context, entry *model.StatusChangeLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append status change log for equipment %d: %w", entry.EquipmentID, err)
	}
	return nil
}

func (s *gormStore) ListLogs(ctx context.Context, equipmentID int64, limit int) ([]model.StatusChangeLog, error) {
	var logs []model.StatusChangeLog
	tx := s.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("changed_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list status change logs for equipment %d: %w", equipmentID, err)
	}
	return logs, nil
}

func (s *gormStore) ListDepartments(ctx context.Context) ([]model.Department, error) {
	var departments []model.Department
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}

func (s *gormStore) GetDepartmentByCode(ctx context.Context, code string) (*model.Department, error) {
	var dept model.Department
	err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&dept).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("department %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch department %q: %w", code, err)
	}
	return &dept, nil
}

func (s *gormStore) ListEquipment(ctx context.Context, scope Scope) ([]model.Equipment, error) {
	tx := s.db.WithContext(ctx).
		Preload("Department").
		Where("equipment.is_active = ?", true)

	switch {
	case scope.EquipmentID != 0:
		tx = tx.Where("equipment.id = ?", scope.EquipmentID)
	case scope.DepartmentCode != "":
		tx = tx.Joins("JOIN departments ON departments.id = equipment.department_id").
			Where("departments.code = ?", scope.DepartmentCode)
	}

	var equipment []model.Equipment
	if err := tx.Order("equipment.asset_number").Find(&equipment).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return equipment, nil
}

// FindEventsInWindow fetches the events intersecting the query window:
// started before the window ends and either still open or ended after the
// window starts. Every report scope shares this one predicate.
func (s *gormStore) FindEventsInWindow(ctx context.Context, q EventQuery) ([]model.DowntimeEvent, error) {
	tx := s.db.WithContext(ctx).Model(&model.DowntimeEvent{}).
		Where("downtime_events.started_at < ?", q.WindowEnd).
		Where("(downtime_events.ended_at IS NULL OR downtime_events.ended_at > ?)", q.WindowStart)

	if q.Category != nil {
		tx = tx.Where("downtime_events.category = ?", *q.Category)
	}

	switch {
	case q.Scope.EquipmentID != 0:
		tx = tx.Where("downtime_events.equipment_id = ?", q.Scope.EquipmentID)
	case q.Scope.DepartmentCode != "":
		tx = tx.Joins("JOIN equipment ON equipment.id = downtime_events.equipment_id").
			Joins("JOIN departments ON departments.id = equipment.department_id").
			Where("departments.code = ?", q.Scope.DepartmentCode)
	}

	var events []model.DowntimeEvent
	if err := tx.Order("downtime_events.started_at").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query downtime events: %w", err)
	}
	return events, nil
}
