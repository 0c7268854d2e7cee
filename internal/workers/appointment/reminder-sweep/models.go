// internal/workers/appointment/reminder-sweep/models.go
package remindersweep

import (
	"context"
	"time"

	"coachme-notifier/internal/dispatch"
	"coachme-notifier/internal/models"
)

type RecordStore interface {
	RemindersBookedBetween(ctx context.Context, start, end time.Time) ([]models.AppointmentReminder, error)
}

// Input is the optional job payload when the sweep is started by Zeebe.
type Input struct {
	// ScheduledAt overrides the day to sweep, RFC 3339.
	ScheduledAt string `json:"scheduledAt,omitempty"`
}

// Output summarises one sweep. Outcomes stay out of job variables.
type Output struct {
	WindowStart time.Time           `json:"windowStart"`
	WindowEnd   time.Time           `json:"windowEnd"`
	Matched     int                 `json:"matched"`
	Sent        int                 `json:"sent"`
	Failed      int                 `json:"failed"`
	Outcomes    []*dispatch.Outcome `json:"-"`
}
