// internal/dispatch/outcome.go
package dispatch

import (
	"time"

	apperrors "coachme-notifier/internal/common/errors"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome is the structured result of one dispatch attempt. Handlers return
// it instead of logging, and the Reporter logs it once.
type Outcome struct {
	DispatchID string    `json:"dispatchId"`
	Trigger    string    `json:"trigger"`
	RecordID   string    `json:"recordId"`
	Token      string    `json:"token,omitempty"` // masked
	Title      string    `json:"title,omitempty"`
	MessageID  string    `json:"messageId,omitempty"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	StartedAt  time.Time `json:"startedAt"`

	Duration time.Duration `json:"-"`
	Err      error         `json:"-"`

	CleanupAttempted bool  `json:"cleanupAttempted"`
	CleanupErr       error `json:"-"`
}

func (o *Outcome) Sent() bool {
	return o.Status == StatusSent
}

// ErrorCode returns the code of the delivery error, or "".
func (o *Outcome) ErrorCode() apperrors.ErrorCode {
	return apperrors.CodeOf(o.Err)
}

// RecordCleanup notes a post-send cleanup attempt and its result.
func (o *Outcome) RecordCleanup(err error) {
	o.CleanupAttempted = true
	o.CleanupErr = err
}

func (o *Outcome) fail(err error) {
	o.Status = StatusFailed
	o.Err = err
}
