// internal/workers/appointment/reminder-sweep/handler.go
package remindersweep

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/common/metrics"
	"coachme-notifier/internal/dispatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/errgroup"
)

const TaskType = "appointment-reminder-sweep"

// Handler sends every reminder booked on the current calendar day.
// Reminders are never modified.
type Handler struct {
	config       *Config
	store        RecordStore
	dispatcher   *dispatch.Dispatcher
	reporter     *dispatch.Reporter
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(
	config *Config,
	store RecordStore,
	dispatcher *dispatch.Dispatcher,
	reporter *dispatch.Reporter,
	log logger.Logger,
) *Handler {
	if config.Location == nil {
		config.Location = time.Local
	}
	log = log.WithFields(map[string]interface{}{"trigger": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		dispatcher:   dispatcher,
		reporter:     reporter,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

// DayWindow returns the half-open interval [start, end) covering the
// calendar day of now in loc. end is the next local midnight, so DST days
// are 23 or 25 hours long.
func DayWindow(now time.Time, loc *time.Location) (start, end time.Time) {
	n := now.In(loc)
	start = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	end = time.Date(n.Year(), n.Month(), n.Day()+1, 0, 0, 0, 0, loc)
	return start, end
}

// Run adapts the sweep to scheduler.Job.
func (h *Handler) Run(ctx context.Context, scheduledAt time.Time) error {
	_, err := h.Execute(ctx, scheduledAt)
	return err
}

// Execute queries the reminders booked on now's day and sends them
// concurrently. It returns once every send has been reported. Only a failed
// query is returned as an error; individual send failures are counted.
func (h *Handler) Execute(ctx context.Context, now time.Time) (*Output, error) {
	start, end := DayWindow(now, h.config.Location)
	log := h.logger.WithFields(map[string]interface{}{
		"windowStart": start.Format(time.RFC3339),
		"windowEnd":   end.Format(time.RFC3339),
	})

	reminders, err := h.store.RemindersBookedBetween(ctx, start, end)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("query_failed").Inc()
		return nil, apperrors.NewQueryFailedError("reminders booked today", err)
	}
	metrics.SweepMatches.Observe(float64(len(reminders)))

	out := &Output{
		WindowStart: start,
		WindowEnd:   end,
		Matched:     len(reminders),
		Outcomes:    make([]*dispatch.Outcome, len(reminders)),
	}
	if len(reminders) == 0 {
		log.Info("no reminders booked today", nil)
		metrics.SweepRuns.WithLabelValues("empty").Inc()
		return out, nil
	}

	var g errgroup.Group
	if h.config.MaxConcurrency > 0 {
		g.SetLimit(h.config.MaxConcurrency)
	}
	for i, r := range reminders {
		i, r := i, r
		g.Go(func() error {
			o := h.dispatcher.Send(ctx, TaskType, r.ID, r.Notification())
			h.reporter.Report(ctx, o)
			out.Outcomes[i] = o
			return nil
		})
	}
	_ = g.Wait() // sends never return an error to the group

	for _, o := range out.Outcomes {
		if o.Sent() {
			out.Sent++
		} else {
			out.Failed++
		}
	}

	log.Info("reminder sweep finished", map[string]interface{}{
		"matched": out.Matched,
		"sent":    out.Sent,
		"failed":  out.Failed,
	})
	metrics.SweepRuns.WithLabelValues("completed").Inc()
	return out, nil
}

// HandleJob runs the sweep for a Zeebe timer-started process instance.
func (h *Handler) HandleJob(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	now, err := parseInput(job.Variables)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, now)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}
	h.completeJob(ctx, client, job, output)
}

func parseInput(variables string) (time.Time, error) {
	var input Input
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &input); err != nil {
			return time.Time{}, apperrors.NewPayloadInvalidError(fmt.Sprintf("parse job variables: %v", err))
		}
	}
	if input.ScheduledAt == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, input.ScheduledAt)
	if err != nil {
		return time.Time{}, apperrors.NewPayloadInvalidError(fmt.Sprintf("scheduledAt: %v", err))
	}
	return t, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
