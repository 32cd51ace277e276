package internal

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
	"downtime-tracker-backend/internal/engine"
	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/report"
	"downtime-tracker-backend/internal/store"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

// setupTest builds an in-memory SQLite database with a department and two
// equipment units, plus the engine and report service on top of it.
func setupTest(t *testing.T) (store.Store, *engine.Engine, *report.Service, []model.Equipment) {
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

	equipment := []model.Equipment{
		{DepartmentID: dept.ID, AssetNumber: "PUMP-001", Description: "Feed pump",
			IsActive: true, Status: model.StatusUp, StatusUpdatedAt: mustTime(t, "2024-01-01T00:00:00Z")},
		{DepartmentID: dept.ID, AssetNumber: "PUMP-002", Description: "Backup pump",
			IsActive: true, Status: model.StatusUp, StatusUpdatedAt: mustTime(t, "2024-01-01T00:00:00Z")},
	}
	require.NoError(t, testDB.Create(&equipment).Error)

	appStore := store.NewGormStore(testDB)
	return appStore, engine.New(appStore), report.NewService(appStore, 10), equipment
}

// TestDowntimeLifecycleAndYearReport walks one equipment through a full
// DOWN/UP cycle and verifies the calendar-year report: down from
// 2024-03-01 to 2024-03-03 yields 2.0 downtime days and one event.
func TestDowntimeLifecycleAndYearReport(t *testing.T) {
	_, eng, reports, equipment := setupTest(t)
	ctx := context.Background()
	pump := equipment[0]

	_, err := eng.ApplyTransition(ctx, pump.ID, engine.Request{
		NewStatus: model.StatusDown,
		Comment:   "motor burned out",
		Category:  model.CategoryUnplanned,
		Actor:     "operator1",
		At:        mustTime(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)

	_, err = eng.ApplyTransition(ctx, pump.ID, engine.Request{
		NewStatus: model.StatusUp,
		Comment:   "motor replaced",
		Actor:     "mechanic2",
		At:        mustTime(t, "2024-03-03T00:00:00Z"),
	})
	require.NoError(t, err)

	res, err := reports.Generate(ctx, report.Params{
		Window: report.Window{
			Start: mustTime(t, "2024-01-01T00:00:00Z"),
			End:   mustTime(t, "2025-01-01T00:00:00Z"),
		},
		Now: mustTime(t, "2025-02-01T00:00:00Z"),
	})
	require.NoError(t, err)
	require.Len(t, res.Equipment, 2)

	m := res.Equipment[0]
	assert.Equal(t, "PUMP-001", m.AssetNumber)
	assert.Equal(t, 2.0, m.DowntimeDays)
	assert.Equal(t, 1, m.EventCount)

	// The untouched unit reports full availability.
	assert.Equal(t, "PUMP-002", res.Equipment[1].AssetNumber)
	assert.Equal(t, 100.0, res.Equipment[1].AvailabilityPct)
	assert.Equal(t, 0, res.Equipment[1].EventCount)

	// Pareto contains only the one unit with downtime, at 100%.
	require.Len(t, res.Pareto, 1)
	assert.Equal(t, "PUMP-001", res.Pareto[0].AssetNumber)
	assert.Equal(t, 100.0, res.Pareto[0].CumulativePct)
}

// TestCrossYearEventClipping: an outage spanning the year boundary only
// counts the portion inside the requested window.
func TestCrossYearEventClipping(t *testing.T) {
	_, eng, reports, equipment := setupTest(t)
	ctx := context.Background()
	pump := equipment[0]

	_, err := eng.ApplyTransition(ctx, pump.ID, engine.Request{
		NewStatus: model.StatusDown,
		Comment:   "year-end outage",
		Category:  model.CategoryPlanned,
		At:        mustTime(t, "2023-12-30T00:00:00Z"),
	})
	require.NoError(t, err)

	_, err = eng.ApplyTransition(ctx, pump.ID, engine.Request{
		NewStatus: model.StatusUp,
		Comment:   "back in service",
		At:        mustTime(t, "2024-01-02T00:00:00Z"),
	})
	require.NoError(t, err)

	res, err := reports.Generate(ctx, report.Params{
		Window: report.Window{
			Start: mustTime(t, "2024-01-01T00:00:00Z"),
			End:   mustTime(t, "2025-01-01T00:00:00Z"),
		},
		Now: mustTime(t, "2025-02-01T00:00:00Z"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Equipment[0].DowntimeDays)
	assert.Equal(t, 1, res.Equipment[0].EventCount)
}

// TestCategoryFilterNarrowsFailures: with the UNPLANNED filter, planned
// maintenance neither adds downtime nor counts as a failure.
func TestCategoryFilterNarrowsFailures(t *testing.T) {
	_, eng, reports, equipment := setupTest(t)
	ctx := context.Background()
	pump := equipment[0]

	transitions := []struct {
		status   model.Status
		category model.Category
		at       string
	}{
		{model.StatusDown, model.CategoryPlanned, "2024-02-01T00:00:00Z"},
		{model.StatusUp, "", "2024-02-02T00:00:00Z"},
		{model.StatusDown, model.CategoryUnplanned, "2024-06-01T00:00:00Z"},
		{model.StatusUp, "", "2024-06-04T00:00:00Z"},
	}
	for _, tr := range transitions {
		_, err := eng.ApplyTransition(ctx, pump.ID, engine.Request{
			NewStatus: tr.status,
			Comment:   "scheduled work",
			Category:  tr.category,
			At:        mustTime(t, tr.at),
		})
		require.NoError(t, err)
	}

	window := report.Window{
		Start: mustTime(t, "2024-01-01T00:00:00Z"),
		End:   mustTime(t, "2025-01-01T00:00:00Z"),
	}
	now := mustTime(t, "2025-02-01T00:00:00Z")

	unfiltered, err := reports.Generate(ctx, report.Params{Window: window, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 4.0, unfiltered.Equipment[0].DowntimeDays)
	assert.Equal(t, 2, unfiltered.Equipment[0].EventCount)

	unplanned := model.CategoryUnplanned
	filtered, err := reports.Generate(ctx, report.Params{Window: window, Now: now, Category: &unplanned})
	require.NoError(t, err)
	assert.Equal(t, 3.0, filtered.Equipment[0].DowntimeDays)
	assert.Equal(t, 1, filtered.Equipment[0].EventCount)
}

// TestOpenEventReportedUpToNow: an ongoing outage contributes downtime up
// to the supplied now reference, and identical report parameters produce
// identical output.
func TestOpenEventReportedUpToNow(t *testing.T) {
	_, eng, reports, equipment := setupTest(t)
	ctx := context.Background()
	pump := equipment[0]

	_, err := eng.ApplyTransition(ctx, pump.ID, engine.Request{
		NewStatus: model.StatusDown,
		Comment:   "still down",
		Category:  model.CategoryUnplanned,
		At:        mustTime(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)

	params := report.Params{
		Window: report.Window{
			Start: mustTime(t, "2024-01-01T00:00:00Z"),
			End:   mustTime(t, "2025-01-01T00:00:00Z"),
		},
		Now: mustTime(t, "2024-03-06T00:00:00Z"),
	}

	first, err := reports.Generate(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 5.0, first.Equipment[0].DowntimeDays)

	// Idempotence: same arguments, no intervening transitions.
	second, err := reports.Generate(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestRacingUpTransitions: when two UP requests race for the same open
// event, exactly one succeeds and one closed event remains.
func TestRacingUpTransitions(t *testing.T) {
	appStore, eng, _, equipment := setupTest(t)
	ctx := context.Background()
	pump := equipment[0]

	_, err := eng.ApplyTransition(ctx, pump.ID, engine.Request{
		NewStatus: model.StatusDown,
		Comment:   "outage",
		Category:  model.CategoryUnplanned,
		At:        mustTime(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)

	upReq := engine.Request{
		NewStatus: model.StatusUp,
		Comment:   "fixed",
		At:        mustTime(t, "2024-03-02T00:00:00Z"),
	}
	_, firstErr := eng.ApplyTransition(ctx, pump.ID, upReq)
	_, secondErr := eng.ApplyTransition(ctx, pump.ID, upReq)

	require.NoError(t, firstErr)
	assert.ErrorIs(t, secondErr, engine.ErrNoOpTransition)

	var closedCount int64
	appStore.DB().Model(&model.DowntimeEvent{}).
		Where("equipment_id = ? AND ended_at IS NOT NULL", pump.ID).
		Count(&closedCount)
	assert.Equal(t, int64(1), closedCount)

	open, err := appStore.FindOpenEvent(ctx, pump.ID, false)
	require.NoError(t, err)
	assert.Nil(t, open)
}
