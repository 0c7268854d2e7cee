// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"errors"
	"time"

	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sender delivers one notification to one device and returns the provider's
// message id.
type Sender interface {
	Send(ctx context.Context, n models.NotificationRecord) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n models.NotificationRecord) (string, error)

func (f SenderFunc) Send(ctx context.Context, n models.NotificationRecord) (string, error) {
	return f(ctx, n)
}

// Dispatcher performs exactly one send attempt per call and turns the result
// into an Outcome. It never retries.
type Dispatcher struct {
	sender Sender
	tracer trace.Tracer
	now    func() time.Time
}

type Option func(*Dispatcher)

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		tracer: otel.Tracer("coachme-notifier/dispatch"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send delivers n on behalf of trigger. An empty destination token fails
// without reaching the provider.
func (d *Dispatcher) Send(ctx context.Context, trigger, recordID string, n models.NotificationRecord) *Outcome {
	out := &Outcome{
		DispatchID: uuid.NewString(),
		Trigger:    trigger,
		RecordID:   recordID,
		Token:      MaskToken(n.DestinationToken),
		Title:      n.Title,
		StartedAt:  d.now(),
	}

	ctx, span := d.tracer.Start(ctx, "push.send", trace.WithAttributes(
		attribute.String("dispatch.id", out.DispatchID),
		attribute.String("trigger", trigger),
		attribute.String("record.id", recordID),
	))
	defer span.End()

	if !n.HasDestination() {
		out.fail(apperrors.NewMissingDestinationTokenError(recordID))
		span.SetStatus(codes.Error, string(apperrors.ErrCodeMissingDestinationToken))
		return out
	}

	messageID, err := d.sender.Send(ctx, n)
	out.Duration = d.now().Sub(out.StartedAt)
	if err != nil {
		out.fail(asDeliveryError(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(out.ErrorCode()))
		return out
	}

	out.Status = StatusSent
	out.MessageID = messageID
	span.SetAttributes(attribute.String("message.id", messageID))
	return out
}

// Skip builds an Outcome for a trigger that decided not to send.
func (d *Dispatcher) Skip(trigger, recordID, reason string) *Outcome {
	return &Outcome{
		DispatchID: uuid.NewString(),
		Trigger:    trigger,
		RecordID:   recordID,
		Status:     StatusSkipped,
		Reason:     reason,
		StartedAt:  d.now(),
	}
}

func asDeliveryError(err error) error {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return err
	}
	return apperrors.NewDeliveryFailedError(err)
}

// MaskToken keeps the last four characters of a device token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
