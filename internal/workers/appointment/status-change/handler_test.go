// internal/workers/appointment/status-change/handler_test.go
package statuschange

import (
	"context"
	"testing"

	"coachme-notifier/internal/changefeed"
	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/common/validation"
	"coachme-notifier/internal/dispatch"
	"coachme-notifier/internal/models"
	"coachme-notifier/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	SendFunc func(ctx context.Context, n models.NotificationRecord) (string, error)
	calls    []models.NotificationRecord
}

func (m *MockSender) Send(ctx context.Context, n models.NotificationRecord) (string, error) {
	m.calls = append(m.calls, n)
	if m.SendFunc == nil {
		return "msg-1", nil
	}
	return m.SendFunc(ctx, n)
}

func newTestHandler(t *testing.T, cfg *Config) (*Handler, *MockSender) {
	t.Helper()
	validator, err := validation.NewValidator()
	require.NoError(t, err)

	sender := &MockSender{}
	log := logger.NewTestLogger(t)
	return NewHandler(cfg, dispatch.NewDispatcher(sender), dispatch.NewReporter(log), validator, log), sender
}

func updateEvent(id, before, after string) changefeed.Event {
	e := changefeed.Event{
		Collection: store.CollectionAppointments,
		Kind:       changefeed.KindUpdate,
		ID:         id,
		After:      []byte(after),
	}
	if before != "" {
		e.Before = []byte(before)
	}
	return e
}

func TestBuildNotification(t *testing.T) {
	tests := []struct {
		name   string
		status models.AppointmentStatus
		ok     bool
		title  string
		body   string
	}{
		{"started", 4, true, StartedTitle, StartedBody},
		{"finished", 5, true, FinishedTitle, FinishedBody},
		{"booked", 1, false, "", ""},
		{"cancelled", 3, false, "", ""},
		{"unknown", 6, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := BuildNotification(Input{ID: "a1", Status: tt.status, DeviceToken: "tok-B"})
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, models.NotificationRecord{}, n)
				return
			}
			assert.Equal(t, tt.title, n.Title)
			assert.Equal(t, tt.body, n.Body)
			assert.Equal(t, "tok-B", n.DestinationToken)
			assert.Equal(t, map[string]string{"appId": "a1", "status": tt.status.String()}, n.ExtraData)
		})
	}
}

func TestHandler_Execute_Started(t *testing.T) {
	h, sender := newTestHandler(t, LoadConfig())

	out := h.Execute(context.Background(), &Input{ID: "a1", Status: models.AppointmentStarted, DeviceToken: "tok-B"})

	require.Len(t, sender.calls, 1)
	assert.Equal(t, models.NotificationRecord{
		Title:            "Your appointment has started!",
		Body:             "Train with purpose! Your training session has just started. Let's make it count!",
		DestinationToken: "tok-B",
		ExtraData:        map[string]string{"appId": "a1", "status": "4"},
	}, sender.calls[0])
	assert.True(t, out.Sent())
	assert.Equal(t, "a1", out.RecordID)
}

func TestHandler_Execute_OtherStatusIsSkipped(t *testing.T) {
	h, sender := newTestHandler(t, LoadConfig())

	out := h.Execute(context.Background(), &Input{ID: "a1", Status: 2, DeviceToken: "tok-B"})

	assert.Empty(t, sender.calls)
	assert.Equal(t, dispatch.StatusSkipped, out.Status)
	assert.Equal(t, "status 2 is not handled", out.Reason)
}

func TestHandler_HandleChange_StringStatus(t *testing.T) {
	h, sender := newTestHandler(t, LoadConfig())

	err := h.HandleChange(context.Background(),
		updateEvent("a1", "", `{"status": "5", "deviceToken": "tok-B"}`))
	require.NoError(t, err)

	require.Len(t, sender.calls, 1)
	assert.Equal(t, FinishedTitle, sender.calls[0].Title)
	assert.Equal(t, "a1", sender.calls[0].ExtraData["appId"])
	assert.Equal(t, "5", sender.calls[0].ExtraData["status"])
}

func TestHandler_HandleChange_RepeatedStatusSendsEachTime(t *testing.T) {
	h, sender := newTestHandler(t, LoadConfig())

	e := updateEvent("a1", `{"status": 4, "deviceToken": "tok-B"}`, `{"status": 4, "deviceToken": "tok-B"}`)
	require.NoError(t, h.HandleChange(context.Background(), e))
	require.NoError(t, h.HandleChange(context.Background(), e))

	assert.Len(t, sender.calls, 2)
}

func TestHandler_HandleChange_SkipUnchangedStatus(t *testing.T) {
	h, sender := newTestHandler(t, &Config{SkipUnchangedStatus: true})

	unchanged := updateEvent("a1", `{"status": 4, "deviceToken": "tok-B"}`, `{"status": 4, "deviceToken": "tok-B"}`)
	require.NoError(t, h.HandleChange(context.Background(), unchanged))
	assert.Empty(t, sender.calls)

	changed := updateEvent("a1", `{"status": 4, "deviceToken": "tok-B"}`, `{"status": 5, "deviceToken": "tok-B"}`)
	require.NoError(t, h.HandleChange(context.Background(), changed))
	require.Len(t, sender.calls, 1)
	assert.Equal(t, FinishedTitle, sender.calls[0].Title)

	// no previous value means nothing to compare against
	noBefore := updateEvent("a2", "", `{"status": 4, "deviceToken": "tok-C"}`)
	require.NoError(t, h.HandleChange(context.Background(), noBefore))
	assert.Len(t, sender.calls, 2)
}

func TestHandler_HandleChange_InvalidPayload(t *testing.T) {
	h, sender := newTestHandler(t, LoadConfig())

	err := h.HandleChange(context.Background(), updateEvent("a1", "", `{"status": "started"}`))
	assert.Equal(t, apperrors.ErrCodePayloadInvalid, apperrors.CodeOf(err))
	assert.Empty(t, sender.calls)
}

func TestHandler_Execute_MissingToken(t *testing.T) {
	h, sender := newTestHandler(t, LoadConfig())

	out := h.Execute(context.Background(), &Input{ID: "a1", Status: models.AppointmentFinished})

	assert.Empty(t, sender.calls)
	assert.Equal(t, apperrors.ErrCodeMissingDestinationToken, out.ErrorCode())
}
