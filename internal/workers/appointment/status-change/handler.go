// internal/workers/appointment/status-change/handler.go
package statuschange

import (
	"context"
	"fmt"

	"coachme-notifier/internal/changefeed"
	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/common/validation"
	"coachme-notifier/internal/dispatch"
)

const TaskType = "appointment-status"

type Handler struct {
	config     *Config
	dispatcher *dispatch.Dispatcher
	reporter   *dispatch.Reporter
	validator  *validation.Validator
	logger     logger.Logger
}

func NewHandler(
	config *Config,
	dispatcher *dispatch.Dispatcher,
	reporter *dispatch.Reporter,
	validator *validation.Validator,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:     config,
		dispatcher: dispatcher,
		reporter:   reporter,
		validator:  validator,
		logger:     log.WithFields(map[string]interface{}{"trigger": TaskType}),
	}
}

// HandleChange implements changefeed.Handler for appointment updates. Every
// update is evaluated on its own; a rewrite with the same status sends again
// unless SkipUnchangedStatus is set.
func (h *Handler) HandleChange(ctx context.Context, e changefeed.Event) error {
	after, err := h.decode(e)
	if err != nil {
		return err
	}
	after.ID = e.ID

	if h.config.SkipUnchangedStatus {
		var before Input
		// an unreadable previous value is ignored; only the new value matters
		if ok, err := e.DecodeBefore(&before); ok && err == nil && before.Status == after.Status {
			h.reporter.Report(ctx, h.dispatcher.Skip(TaskType, after.ID,
				fmt.Sprintf("status %s unchanged", after.Status)))
			return nil
		}
	}

	h.Execute(ctx, after)
	return nil
}

func (h *Handler) decode(e changefeed.Event) (*Input, error) {
	if h.validator != nil {
		res, err := h.validator.Validate(validation.SchemaAppointment, e.After)
		if err != nil {
			return nil, apperrors.NewPayloadInvalidError(err.Error())
		}
		if !res.Valid {
			return nil, apperrors.NewPayloadInvalidError(res.Summary())
		}
	}
	var input Input
	if err := e.DecodeAfter(&input); err != nil {
		return nil, apperrors.NewPayloadInvalidError(err.Error())
	}
	return &input, nil
}

// Execute sends the started/finished notification, or reports a skip for
// any other status.
func (h *Handler) Execute(ctx context.Context, input *Input) *dispatch.Outcome {
	n, ok := BuildNotification(*input)
	if !ok {
		h.logger.Debug("appointment status not handled", map[string]interface{}{
			"appointmentId": input.ID,
			"status":        int(input.Status),
		})
		out := h.dispatcher.Skip(TaskType, input.ID, fmt.Sprintf("status %s is not handled", input.Status))
		h.reporter.Report(ctx, out)
		return out
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	out := h.dispatcher.Send(ctx, TaskType, input.ID, n)
	h.reporter.Report(ctx, out)
	return out
}
