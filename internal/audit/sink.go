// internal/audit/sink.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coachme-notifier/internal/dispatch"

	"github.com/elastic/go-elasticsearch/v8"
)

// Sink indexes dispatch outcomes into Elasticsearch, one document per
// dispatch id. It implements dispatch.Recorder.
type Sink struct {
	client *elasticsearch.Client
	index  string
}

func NewSink(client *elasticsearch.Client, index string) *Sink {
	return &Sink{client: client, index: index}
}

type document struct {
	DispatchID       string    `json:"dispatchId"`
	Trigger          string    `json:"trigger"`
	RecordID         string    `json:"recordId"`
	Token            string    `json:"token,omitempty"`
	Title            string    `json:"title,omitempty"`
	Status           string    `json:"status"`
	MessageID        string    `json:"messageId,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	ErrorCode        string    `json:"errorCode,omitempty"`
	Error            string    `json:"error,omitempty"`
	CleanupAttempted bool      `json:"cleanupAttempted"`
	CleanupError     string    `json:"cleanupError,omitempty"`
	DurationMs       int64     `json:"durationMs"`
	Timestamp        time.Time `json:"@timestamp"`
}

func newDocument(o *dispatch.Outcome) document {
	doc := document{
		DispatchID:       o.DispatchID,
		Trigger:          o.Trigger,
		RecordID:         o.RecordID,
		Token:            o.Token,
		Title:            o.Title,
		Status:           string(o.Status),
		MessageID:        o.MessageID,
		Reason:           o.Reason,
		ErrorCode:        string(o.ErrorCode()),
		CleanupAttempted: o.CleanupAttempted,
		DurationMs:       o.Duration.Milliseconds(),
		Timestamp:        o.StartedAt.UTC(),
	}
	if o.Err != nil {
		doc.Error = o.Err.Error()
	}
	if o.CleanupErr != nil {
		doc.CleanupError = o.CleanupErr.Error()
	}
	return doc
}

func (s *Sink) Record(ctx context.Context, o *dispatch.Outcome) error {
	body, err := json.Marshal(newDocument(o))
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(o.DispatchID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index outcome: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index outcome: %s", res.Status())
	}
	return nil
}
