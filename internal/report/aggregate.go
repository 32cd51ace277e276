package report

import (
	"math"
	"sort"
	"time"

	"downtime-tracker-backend/internal/model"
)

// EquipmentMetrics holds the derived reliability figures for one equipment
// unit over a window. Seconds fields are raw sums; day values are rounded
// to 3 decimals and hour/percentage values to 2, applied only here at the
// output step so rounding error never compounds.
type EquipmentMetrics struct {
	EquipmentID    int64  `json:"equipmentId"`
	AssetNumber    string `json:"assetNumber"`
	Description    string `json:"description"`
	DepartmentCode string `json:"departmentCode"`

	EventCount      int     `json:"eventCount"`
	DowntimeSeconds float64 `json:"downtimeSeconds"`
	UptimeSeconds   float64 `json:"uptimeSeconds"`
	WindowSeconds   float64 `json:"windowSeconds"`

	DowntimeDays    float64 `json:"downtimeDays"`
	DowntimeHours   float64 `json:"downtimeHours"`
	AvailabilityPct float64 `json:"availabilityPct"`
	MTTRHours       float64 `json:"mttrHours"`
	MTBFHours       float64 `json:"mtbfHours"`
}

// Summary is a rollup over a set of equipment: summed downtime, uptime,
// window and event counts, with availability/MTTR/MTBF re-derived from the
// summed values using the same formulas.
type Summary struct {
	EquipmentCount  int     `json:"equipmentCount"`
	EventCount      int     `json:"eventCount"`
	DowntimeSeconds float64 `json:"downtimeSeconds"`
	UptimeSeconds   float64 `json:"uptimeSeconds"`
	WindowSeconds   float64 `json:"windowSeconds"`

	DowntimeDays    float64 `json:"downtimeDays"`
	DowntimeHours   float64 `json:"downtimeHours"`
	AvailabilityPct float64 `json:"availabilityPct"`
	MTTRHours       float64 `json:"mttrHours"`
	MTBFHours       float64 `json:"mtbfHours"`
}

// ParetoEntry is one row of the downtime Pareto ranking.
type ParetoEntry struct {
	EquipmentID   int64   `json:"equipmentId"`
	AssetNumber   string  `json:"assetNumber"`
	DowntimeDays  float64 `json:"downtimeDays"`
	EventCount    int     `json:"eventCount"`
	CumulativePct float64 `json:"cumulativePct"`
}

// PerEquipment computes metrics for every given equipment unit from the
// events intersecting the window. Every event counts as one failure
// regardless of category; narrowing failures to e.g. UNPLANNED is done by
// filtering the events before calling, not in here.
func PerEquipment(equipment []model.Equipment, events []model.DowntimeEvent, w Window, now time.Time) []EquipmentMetrics {
	type acc struct {
		seconds float64
		count   int
	}
	sums := make(map[int64]acc, len(equipment))
	for i := range events {
		ev := &events[i]
		a := sums[ev.EquipmentID]
		a.seconds += OverlapSeconds(ev, w, now)
		a.count++
		sums[ev.EquipmentID] = a
	}

	windowSeconds := w.ElapsedSeconds(now)

	metrics := make([]EquipmentMetrics, 0, len(equipment))
	for _, eq := range equipment {
		a := sums[eq.ID]
		d := derive(a.seconds, windowSeconds, a.count)
		metrics = append(metrics, EquipmentMetrics{
			EquipmentID:     eq.ID,
			AssetNumber:     eq.AssetNumber,
			Description:     eq.Description,
			DepartmentCode:  eq.Department.Code,
			EventCount:      a.count,
			DowntimeSeconds: d.downtime,
			UptimeSeconds:   d.uptime,
			WindowSeconds:   d.window,
			DowntimeDays:    d.days,
			DowntimeHours:   d.hours,
			AvailabilityPct: d.availPct,
			MTTRHours:       d.mttrHours,
			MTBFHours:       d.mtbfHours,
		})
	}

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].AssetNumber < metrics[j].AssetNumber
	})
	return metrics
}

// Rollup sums the per-equipment inputs and re-derives the aggregate
// metrics from the sums.
func Rollup(metrics []EquipmentMetrics) Summary {
	var (
		downtime float64
		window   float64
		count    int
	)
	for _, m := range metrics {
		downtime += m.DowntimeSeconds
		window += m.WindowSeconds
		count += m.EventCount
	}

	d := derive(downtime, window, count)
	return Summary{
		EquipmentCount:  len(metrics),
		EventCount:      count,
		DowntimeSeconds: d.downtime,
		UptimeSeconds:   d.uptime,
		WindowSeconds:   d.window,
		DowntimeDays:    d.days,
		DowntimeHours:   d.hours,
		AvailabilityPct: d.availPct,
		MTTRHours:       d.mttrHours,
		MTBFHours:       d.mtbfHours,
	}
}

// Pareto ranks equipment by descending downtime and annotates each of the
// top n with the running share of total downtime across all equipment with
// nonzero downtime. Zero-downtime equipment never appears.
func Pareto(metrics []EquipmentMetrics, n int) []ParetoEntry {
	ranked := make([]EquipmentMetrics, 0, len(metrics))
	var totalSeconds float64
	for _, m := range metrics {
		if m.DowntimeSeconds > 0 {
			ranked = append(ranked, m)
			totalSeconds += m.DowntimeSeconds
		}
	}
	if len(ranked) == 0 || totalSeconds <= 0 {
		return nil
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DowntimeSeconds != ranked[j].DowntimeSeconds {
			return ranked[i].DowntimeSeconds > ranked[j].DowntimeSeconds
		}
		return ranked[i].AssetNumber < ranked[j].AssetNumber
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	entries := make([]ParetoEntry, 0, len(ranked))
	var running float64
	for _, m := range ranked {
		running += m.DowntimeSeconds
		entries = append(entries, ParetoEntry{
			EquipmentID:   m.EquipmentID,
			AssetNumber:   m.AssetNumber,
			DowntimeDays:  round3(m.DowntimeSeconds / 86400),
			EventCount:    m.EventCount,
			CumulativePct: round2(running / totalSeconds * 100),
		})
	}
	return entries
}

type derivedMetrics struct {
	downtime, uptime, window float64
	days, hours, availPct    float64
	mttrHours, mtbfHours     float64
}

// derive applies the shared metric formulas:
//
//	uptime       = max(0, window - downtime)
//	availability = 1 - downtime/window   (0 when window is 0, clamped to [0,1])
//	MTTR         = downtime / eventCount (0 when eventCount is 0)
//	MTBF         = uptime / eventCount   (0 when eventCount is 0)
func derive(downtime, window float64, count int) derivedMetrics {
	uptime := window - downtime
	if uptime < 0 {
		uptime = 0
	}

	availability := 0.0
	if window > 0 {
		availability = 1 - downtime/window
		if availability < 0 {
			availability = 0
		} else if availability > 1 {
			availability = 1
		}
	}

	var mttrSec, mtbfSec float64
	if count > 0 {
		mttrSec = downtime / float64(count)
		mtbfSec = uptime / float64(count)
	}

	return derivedMetrics{
		downtime:  downtime,
		uptime:    uptime,
		window:    window,
		days:      round3(downtime / 86400),
		hours:     round2(downtime / 3600),
		availPct:  round2(availability * 100),
		mttrHours: round2(mttrSec / 3600),
		mtbfHours: round2(mtbfSec / 3600),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
