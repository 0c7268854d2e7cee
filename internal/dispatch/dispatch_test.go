package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRecorder struct {
	outcomes []*Outcome
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, o *Outcome) error {
	f.outcomes = append(f.outcomes, o)
	return f.err
}

type fakeInstruments struct {
	calls []string
}

func (f *fakeInstruments) RecordDispatch(_ context.Context, trigger, status string, _ time.Duration) {
	f.calls = append(f.calls, trigger+":"+status)
}

func newTracer() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
}

func TestDispatcher_Send_Success(t *testing.T) {
	sr, tp := newTracer()
	var got models.NotificationRecord
	sender := SenderFunc(func(_ context.Context, n models.NotificationRecord) (string, error) {
		got = n
		return "msg-1", nil
	})

	d := NewDispatcher(sender, WithTracer(tp.Tracer("test")))
	n := models.NotificationRecord{Title: "Order Confirmed", Body: "Your order is on its way", DestinationToken: "tok-ABCDEF"}
	out := d.Send(context.Background(), "order-notification", "o1", n)

	assert.Equal(t, n, got)
	assert.True(t, out.Sent())
	assert.Equal(t, "msg-1", out.MessageID)
	assert.Equal(t, "****CDEF", out.Token)
	assert.Equal(t, "o1", out.RecordID)
	assert.NotEmpty(t, out.DispatchID)
	assert.NoError(t, out.Err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "push.send", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestDispatcher_Send_Failure(t *testing.T) {
	sr, tp := newTracer()
	sender := SenderFunc(func(context.Context, models.NotificationRecord) (string, error) {
		return "", errors.New("InvalidParameter: token revoked")
	})

	out := NewDispatcher(sender, WithTracer(tp.Tracer("test"))).
		Send(context.Background(), "appointment-status", "a1", models.NotificationRecord{Title: "t", DestinationToken: "tok-1"})

	assert.Equal(t, StatusFailed, out.Status)
	assert.False(t, out.Sent())
	assert.Equal(t, apperrors.ErrCodeDeliveryFailed, out.ErrorCode())
	assert.ErrorContains(t, out.Err, "token revoked")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestDispatcher_Send_KeepsSenderErrorCode(t *testing.T) {
	sender := SenderFunc(func(context.Context, models.NotificationRecord) (string, error) {
		return "", apperrors.NewEndpointRegistrationFailedError(errors.New("invalid token"))
	})
	out := NewDispatcher(sender).Send(context.Background(), "order-notification", "o1", models.NotificationRecord{DestinationToken: "tok"})
	assert.Equal(t, apperrors.ErrCodeEndpointRegistrationFailed, out.ErrorCode())
}

func TestDispatcher_Send_MissingToken(t *testing.T) {
	called := false
	sender := SenderFunc(func(context.Context, models.NotificationRecord) (string, error) {
		called = true
		return "", nil
	})

	out := NewDispatcher(sender).Send(context.Background(), "order-notification", "o1", models.NotificationRecord{Title: "t"})
	assert.False(t, called)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, apperrors.ErrCodeMissingDestinationToken, out.ErrorCode())
}

func TestDispatcher_Skip(t *testing.T) {
	fixed := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	d := NewDispatcher(nil, WithClock(func() time.Time { return fixed }))

	out := d.Skip("appointment-status", "a1", "status 2 is not handled")
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Equal(t, fixed, out.StartedAt)
	assert.Equal(t, apperrors.ErrorCode(""), out.ErrorCode())
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "****", MaskToken("abc"))
	assert.Equal(t, "****", MaskToken("abcd"))
	assert.Equal(t, "****bcde", MaskToken("abcde"))
}

func TestReporter_Report(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &fakeRecorder{}
	inst := &fakeInstruments{}
	r := NewReporter(logger.NewZapAdapter(zap.New(core)), WithRecorder(rec), WithInstruments(inst))

	sent := &Outcome{DispatchID: "d1", Trigger: "order-notification", RecordID: "o1", Status: StatusSent, MessageID: "m1", Token: "****AAAA"}
	sent.RecordCleanup(errors.New("permission denied"))
	r.Report(context.Background(), sent)

	failed := &Outcome{DispatchID: "d2", Trigger: "appointment-reminder-sweep", RecordID: "r2", Status: StatusFailed,
		Err: apperrors.NewDeliveryFailedError(errors.New("endpoint disabled"))}
	r.Report(context.Background(), failed)

	r.Report(context.Background(), nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "notification sent", entries[0].Message)
	assert.Equal(t, "m1", entries[0].ContextMap()["messageId"])

	assert.Equal(t, "source record not deleted", entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "o1", entries[1].ContextMap()["recordId"])

	assert.Equal(t, "notification not sent", entries[2].Message)
	assert.Equal(t, "DELIVERY_FAILED", entries[2].ContextMap()["errorCode"])

	assert.Len(t, rec.outcomes, 2)
	assert.Equal(t, []string{"order-notification:sent", "appointment-reminder-sweep:failed"}, inst.calls)
}

func TestReporter_RecorderFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewReporter(logger.NewZapAdapter(zap.New(core)), WithRecorder(&fakeRecorder{err: errors.New("index closed")}))

	r.Report(context.Background(), &Outcome{DispatchID: "d1", Trigger: "appointment-status", Status: StatusSkipped, Reason: "status 1 is not handled"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "notification skipped", entries[0].Message)
	assert.Equal(t, "status 1 is not handled", entries[0].ContextMap()["reason"])
	assert.Equal(t, "outcome not recorded", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
