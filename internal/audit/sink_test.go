package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/dispatch"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	status   int
	requests []*http.Request
	bodies   []string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(b))
	}
	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: f.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(`{"result":"created"}`)),
		Request:    req,
	}, nil
}

func newTestSink(t *testing.T, status int) (*Sink, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{status: status}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: tr,
	})
	require.NoError(t, err)
	return NewSink(client, "push-dispatch-outcomes"), tr
}

func TestSink_Record(t *testing.T) {
	sink, tr := newTestSink(t, http.StatusCreated)

	o := &dispatch.Outcome{
		DispatchID: "d-1",
		Trigger:    "order-notification",
		RecordID:   "o1",
		Token:      "****ok-A",
		Status:     dispatch.StatusSent,
		MessageID:  "msg-1",
		StartedAt:  time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC),
		Duration:   120 * time.Millisecond,
	}
	o.RecordCleanup(errors.New("permission denied"))

	require.NoError(t, sink.Record(context.Background(), o))
	require.Len(t, tr.requests, 1)

	req := tr.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/push-dispatch-outcomes/_doc/d-1", req.URL.Path)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tr.bodies[0]), &doc))
	assert.Equal(t, "sent", doc["status"])
	assert.Equal(t, "msg-1", doc["messageId"])
	assert.Equal(t, "permission denied", doc["cleanupError"])
	assert.Equal(t, float64(120), doc["durationMs"])
	assert.Equal(t, "2024-03-10T06:00:00Z", doc["@timestamp"])
}

func TestSink_Record_FailedOutcome(t *testing.T) {
	sink, tr := newTestSink(t, http.StatusCreated)

	o := &dispatch.Outcome{
		DispatchID: "d-2",
		Trigger:    "appointment-reminder-sweep",
		RecordID:   "r2",
		Status:     dispatch.StatusFailed,
		Err:        apperrors.NewDeliveryFailedError(errors.New("endpoint disabled")),
	}
	require.NoError(t, sink.Record(context.Background(), o))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tr.bodies[0]), &doc))
	assert.Equal(t, "DELIVERY_FAILED", doc["errorCode"])
	assert.Contains(t, doc["error"], "endpoint disabled")
	assert.NotContains(t, doc, "messageId")
}

func TestSink_Record_ErrorResponse(t *testing.T) {
	sink, _ := newTestSink(t, http.StatusBadRequest)

	err := sink.Record(context.Background(), &dispatch.Outcome{DispatchID: "d-3", Status: dispatch.StatusSkipped})
	assert.ErrorContains(t, err, "400")
}
