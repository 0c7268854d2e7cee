// internal/workers/order/order-notification/handler.go
package ordernotification

import (
	"context"

	"coachme-notifier/internal/changefeed"
	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/common/validation"
	"coachme-notifier/internal/dispatch"
)

const TaskType = "order-notification"

// Handler sends the push for a new order notification request and deletes
// the request after a successful send.
type Handler struct {
	config     *Config
	store      RecordStore
	dispatcher *dispatch.Dispatcher
	reporter   *dispatch.Reporter
	validator  *validation.Validator
	logger     logger.Logger
}

func NewHandler(
	config *Config,
	store RecordStore,
	dispatcher *dispatch.Dispatcher,
	reporter *dispatch.Reporter,
	validator *validation.Validator,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:     config,
		store:      store,
		dispatcher: dispatcher,
		reporter:   reporter,
		validator:  validator,
		logger:     log.WithFields(map[string]interface{}{"trigger": TaskType}),
	}
}

// HandleChange implements changefeed.Handler for order creations.
func (h *Handler) HandleChange(ctx context.Context, e changefeed.Event) error {
	input, err := h.decode(e)
	if err != nil {
		h.logger.Warn("order notification payload rejected", map[string]interface{}{
			"recordId": e.ID,
			"error":    err.Error(),
		})
		return err
	}
	h.Execute(ctx, input)
	return nil
}

func (h *Handler) decode(e changefeed.Event) (*Input, error) {
	if h.validator != nil {
		res, err := h.validator.Validate(validation.SchemaOrderNotification, e.After)
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
	input.ID = e.ID
	return &input, nil
}

// Execute performs one send and, only when it succeeded, one delete. The
// outcome is reported before it is returned.
func (h *Handler) Execute(ctx context.Context, input *Input) *dispatch.Outcome {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	out := h.dispatcher.Send(ctx, TaskType, input.ID, input.Notification())
	if out.Sent() {
		var cleanupErr error
		if err := h.store.DeleteOrderNotification(ctx, input.ID); err != nil {
			cleanupErr = apperrors.NewCleanupFailedError(input.ID, err)
		}
		out.RecordCleanup(cleanupErr)
	}

	h.reporter.Report(ctx, out)
	return out
}
