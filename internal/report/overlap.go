package report

import (
	"time"

	"downtime-tracker-backend/internal/model"
)

// Window is the half-open interval [Start, End) a report is computed over.
type Window struct {
	Start time.Time
	End   time.Time
}

// ElapsedSeconds is the portion of the window that has passed as of now.
// Entirely future windows yield zero.
func (w Window) ElapsedSeconds(now time.Time) float64 {
	end := w.End
	if now.Before(end) {
		end = now
	}
	elapsed := end.Sub(w.Start).Seconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// OverlapSeconds is the duration of the event's intersection with the
// window. Open events are clipped at now, which is passed in explicitly so
// the computation is deterministic. Events entirely outside the window
// yield zero.
func OverlapSeconds(ev *model.DowntimeEvent, w Window, now time.Time) float64 {
	end := now
	if ev.EndedAt != nil {
		end = *ev.EndedAt
	}
	if w.End.Before(end) {
		end = w.End
	}

	start := ev.StartedAt
	if start.Before(w.Start) {
		start = w.Start
	}

	overlap := end.Sub(start).Seconds()
	if overlap < 0 {
		return 0
	}
	return overlap
}
