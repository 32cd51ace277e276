package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"downtime-tracker-backend/internal/db"
	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/store"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// newTestEngine sets up an in-memory SQLite database with one department
// and one equipment unit, initially UP.
func newTestEngine(t *testing.T) (*Engine, store.Store, *model.Equipment) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := testDB.DB()
		sqlDB.Close()
	})

	require.NoError(t, db.Migrate(testDB))

	dept := model.Department{Name: "Utilities", Code: "UTIL", IsActive: true}
	require.NoError(t, testDB.Create(&dept).Error)

	eq := model.Equipment{
		DepartmentID:    dept.ID,
		AssetNumber:     "PUMP-001",
		Description:     "Feed pump",
		IsActive:        true,
		Status:          model.StatusUp,
		StatusUpdatedAt: ts("2024-01-01T00:00:00Z"),
	}
	require.NoError(t, testDB.Create(&eq).Error)

	s := store.NewGormStore(testDB)
	return New(s), s, &eq
}

func TestApplyTransitionLifecycle(t *testing.T) {
	e, s, eq := newTestEngine(t)
	ctx := context.Background()

	downAt := ts("2024-03-01T00:00:00Z")
	upAt := ts("2024-03-03T00:00:00Z")

	downLog, err := e.ApplyTransition(ctx, eq.ID, Request{
		NewStatus: model.StatusDown,
		Comment:   "bearing seized",
		Category:  model.CategoryUnplanned,
		Actor:     "operator1",
		At:        downAt,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusUp, downLog.FromStatus)
	assert.Equal(t, model.StatusDown, downLog.ToStatus)
	assert.Equal(t, "operator1", downLog.ChangedBy)

	// Equipment is DOWN with exactly one open event referencing the log.
	current, err := s.GetEquipment(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDown, current.Status)
	assert.Equal(t, downAt.Unix(), current.StatusUpdatedAt.Unix())

	open, err := s.FindOpenEvent(ctx, eq.ID, false)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, model.CategoryUnplanned, open.Category)
	assert.Equal(t, "bearing seized", open.StartComment)
	require.NotNil(t, open.StartedByLogID)
	assert.Equal(t, downLog.ID, *open.StartedByLogID)

	upLog, err := e.ApplyTransition(ctx, eq.ID, Request{
		NewStatus: model.StatusUp,
		Comment:   "bearing replaced",
		Actor:     "mechanic2",
		At:        upAt,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDown, upLog.FromStatus)
	assert.Equal(t, model.StatusUp, upLog.ToStatus)

	// No open event remains; the closed event has its end fields set.
	open, err = s.FindOpenEvent(ctx, eq.ID, false)
	require.NoError(t, err)
	assert.Nil(t, open)

	var closed model.DowntimeEvent
	require.NoError(t, s.DB().Where("equipment_id = ?", eq.ID).First(&closed).Error)
	require.NotNil(t, closed.EndedAt)
	assert.True(t, closed.EndedAt.After(closed.StartedAt))
	assert.Equal(t, "bearing replaced", closed.EndComment)
	assert.Equal(t, "mechanic2", closed.ClosedBy)
	require.NotNil(t, closed.EndedByLogID)
	assert.Equal(t, upLog.ID, *closed.EndedByLogID)

	// Exactly one event and two log entries, ordered by changed_at.
	var eventCount int64
	s.DB().Model(&model.DowntimeEvent{}).Where("equipment_id = ?", eq.ID).Count(&eventCount)
	assert.Equal(t, int64(1), eventCount)

	logs, err := s.ListLogs(ctx, eq.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.StatusUp, logs[0].ToStatus)
	assert.Equal(t, model.StatusDown, logs[1].ToStatus)
}

func TestApplyTransitionNormalizesStatus(t *testing.T) {
	e, s, eq := newTestEngine(t)

	_, err := e.ApplyTransition(context.Background(), eq.ID, Request{
		NewStatus: " down ",
		Comment:   "planned maintenance",
		Category:  model.CategoryPlanned,
		At:        ts("2024-02-01T00:00:00Z"),
	})
	require.NoError(t, err)

	current, err := s.GetEquipment(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDown, current.Status)
}

func TestApplyTransitionValidation(t *testing.T) {
	testCases := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{
			name:    "unknown status",
			req:     Request{NewStatus: "BROKEN", Comment: "x"},
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "whitespace comment",
			req:     Request{NewStatus: model.StatusDown, Comment: "   ", Category: model.CategoryUnplanned},
			wantErr: ErrMissingComment,
		},
		{
			name:    "down without category",
			req:     Request{NewStatus: model.StatusDown, Comment: "no category supplied"},
			wantErr: ErrMissingCategory,
		},
		{
			name:    "up while already up",
			req:     Request{NewStatus: model.StatusUp, Comment: "already up"},
			wantErr: ErrNoOpTransition,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, s, eq := newTestEngine(t)

			_, err := e.ApplyTransition(context.Background(), eq.ID, tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)

			var tErr *TransitionError
			require.ErrorAs(t, err, &tErr)
			assert.Equal(t, eq.ID, tErr.EquipmentID)

			// Nothing was written.
			var logCount, eventCount int64
			s.DB().Model(&model.StatusChangeLog{}).Count(&logCount)
			s.DB().Model(&model.DowntimeEvent{}).Count(&eventCount)
			assert.Equal(t, int64(0), logCount)
			assert.Equal(t, int64(0), eventCount)
		})
	}
}

func TestApplyTransitionDuplicateDown(t *testing.T) {
	e, s, eq := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ApplyTransition(ctx, eq.ID, Request{
		NewStatus: model.StatusDown,
		Comment:   "first outage",
		Category:  model.CategoryUnplanned,
		At:        ts("2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)

	// A second DOWN while the equipment is already down must fail without
	// creating a new log entry or event.
	_, err = e.ApplyTransition(ctx, eq.ID, Request{
		NewStatus: model.StatusDown,
		Comment:   "second outage",
		Category:  model.CategoryUnplanned,
		At:        ts("2024-03-02T00:00:00Z"),
	})
	assert.ErrorIs(t, err, ErrDuplicateOpenEvent)

	var logCount, eventCount int64
	s.DB().Model(&model.StatusChangeLog{}).Count(&logCount)
	s.DB().Model(&model.DowntimeEvent{}).Count(&eventCount)
	assert.Equal(t, int64(1), logCount)
	assert.Equal(t, int64(1), eventCount)
}

func TestApplyTransitionUpWithoutOpenEvent(t *testing.T) {
	e, s, eq := newTestEngine(t)
	ctx := context.Background()

	// Force an inconsistent DOWN status with no open event; closing must
	// fail cleanly instead of inventing an event.
	require.NoError(t, s.DB().Model(&model.Equipment{}).
		Where("id = ?", eq.ID).
		Update("status", model.StatusDown).Error)

	_, err := e.ApplyTransition(ctx, eq.ID, Request{
		NewStatus: model.StatusUp,
		Comment:   "trying to close",
	})
	assert.ErrorIs(t, err, ErrNoOpenEventToClose)
}

func TestApplyTransitionCloseBeforeStartRejected(t *testing.T) {
	e, _, eq := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ApplyTransition(ctx, eq.ID, Request{
		NewStatus: model.StatusDown,
		Comment:   "outage",
		Category:  model.CategoryUnplanned,
		At:        ts("2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)

	// Closing at or before the open event's start would produce a
	// non-positive duration.
	_, err = e.ApplyTransition(ctx, eq.ID, Request{
		NewStatus: model.StatusUp,
		Comment:   "clock skew",
		At:        ts("2024-03-01T00:00:00Z"),
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestApplyTransitionUnknownEquipment(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.ApplyTransition(context.Background(), 9999, Request{
		NewStatus: model.StatusDown,
		Comment:   "ghost",
		Category:  model.CategoryUnplanned,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpenEventUniqueIndex(t *testing.T) {
	_, s, eq := newTestEngine(t)

	// The storage layer itself rejects a second open event even if engine
	// checks were bypassed.
	ctx := context.Background()
	first := model.DowntimeEvent{
		EquipmentID: eq.ID, Category: model.CategoryUnplanned,
		StartedAt: ts("2024-03-01T00:00:00Z"), StartComment: "one",
	}
	require.NoError(t, s.CreateEvent(ctx, &first))

	second := model.DowntimeEvent{
		EquipmentID: eq.ID, Category: model.CategoryUnplanned,
		StartedAt: ts("2024-03-02T00:00:00Z"), StartComment: "two",
	}
	err := s.CreateEvent(ctx, &second)
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// A closed event alongside an open one is fine.
	ended := ts("2024-02-02T00:00:00Z")
	closed := model.DowntimeEvent{
		EquipmentID: eq.ID, Category: model.CategoryPlanned,
		StartedAt: ts("2024-02-01T00:00:00Z"), EndedAt: &ended, StartComment: "done",
	}
	assert.NoError(t, s.CreateEvent(ctx, &closed))
}
