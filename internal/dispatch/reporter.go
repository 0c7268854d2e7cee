// internal/dispatch/reporter.go
package dispatch

import (
	"context"
	"time"

	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/common/metrics"
)

// Recorder persists outcomes somewhere outside the log, e.g. an audit index.
// Recorder failures never affect the dispatch.
type Recorder interface {
	Record(ctx context.Context, o *Outcome) error
}

// Instruments receives dispatch measurements for OpenTelemetry.
type Instruments interface {
	RecordDispatch(ctx context.Context, trigger, status string, duration time.Duration)
}

// Reporter is the single place where outcomes are logged and counted.
type Reporter struct {
	logger      logger.Logger
	instruments Instruments
	recorders   []Recorder
}

type ReporterOption func(*Reporter)

func WithInstruments(i Instruments) ReporterOption {
	return func(r *Reporter) { r.instruments = i }
}

func WithRecorder(rec Recorder) ReporterOption {
	return func(r *Reporter) { r.recorders = append(r.recorders, rec) }
}

func NewReporter(log logger.Logger, opts ...ReporterOption) *Reporter {
	r := &Reporter{logger: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) Report(ctx context.Context, o *Outcome) {
	if o == nil {
		return
	}

	fields := map[string]interface{}{
		"dispatchId": o.DispatchID,
		"trigger":    o.Trigger,
		"recordId":   o.RecordID,
		"status":     string(o.Status),
	}
	if o.Token != "" {
		fields["token"] = o.Token
	}
	if o.MessageID != "" {
		fields["messageId"] = o.MessageID
	}
	if o.Duration > 0 {
		fields["durationMs"] = o.Duration.Milliseconds()
	}

	switch o.Status {
	case StatusSent:
		r.logger.Info("notification sent", fields)
	case StatusSkipped:
		fields["reason"] = o.Reason
		r.logger.Info("notification skipped", fields)
	default:
		fields["error"] = o.Err
		fields["errorCode"] = string(o.ErrorCode())
		r.logger.Error("notification not sent", fields)
	}

	if o.CleanupAttempted && o.CleanupErr != nil {
		r.logger.Error("source record not deleted", map[string]interface{}{
			"dispatchId": o.DispatchID,
			"trigger":    o.Trigger,
			"recordId":   o.RecordID,
			"error":      o.CleanupErr,
		})
		metrics.CleanupFailures.WithLabelValues(o.Trigger).Inc()
	}

	metrics.DispatchesTotal.WithLabelValues(o.Trigger, string(o.Status), string(o.ErrorCode())).Inc()
	if o.Status != StatusSkipped {
		metrics.DispatchDuration.WithLabelValues(o.Trigger).Observe(o.Duration.Seconds())
	}
	if r.instruments != nil {
		r.instruments.RecordDispatch(ctx, o.Trigger, string(o.Status), o.Duration)
	}

	for _, rec := range r.recorders {
		if err := rec.Record(ctx, o); err != nil {
			r.logger.Warn("outcome not recorded", map[string]interface{}{
				"dispatchId": o.DispatchID,
				"error":      err,
			})
		}
	}
}
