// internal/workers/appointment/status-change/models.go
package statuschange

import (
	"coachme-notifier/internal/models"
)

const (
	StartedTitle  = "Your appointment has started!"
	StartedBody   = "Train with purpose! Your training session has just started. Let's make it count!"
	FinishedTitle = "Training Session Finished!"
	FinishedBody  = "Great job! You've finished your training session workout. We hope you feel great and proud of your accomplishments :)"
)

// Input is the post-update appointment.
type Input = models.Appointment

// BuildNotification returns the fixed-copy notification for a started or
// finished appointment. ok is false for every other status.
func BuildNotification(a Input) (n models.NotificationRecord, ok bool) {
	var title, body string
	switch a.Status.Kind() {
	case models.StatusStarted:
		title, body = StartedTitle, StartedBody
	case models.StatusFinished:
		title, body = FinishedTitle, FinishedBody
	default:
		return models.NotificationRecord{}, false
	}

	return models.NotificationRecord{
		Title:            title,
		Body:             body,
		DestinationToken: a.DeviceToken,
		ExtraData: map[string]string{
			"appId":  a.ID,
			"status": a.Status.String(),
		},
	}, true
}
