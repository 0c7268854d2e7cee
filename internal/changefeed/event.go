// internal/changefeed/event.go
package changefeed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

var ErrInvalidEvent = errors.New("invalid change event")

// Event is one row change. Before is empty for creates, After for deletes.
type Event struct {
	Collection string          `json:"collection"`
	Kind       Kind            `json:"kind"`
	ID         string          `json:"id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	ReceivedAt time.Time       `json:"-"`
}

// DecodeEvent parses a change event. fallbackID is used when the payload
// carries no id (e.g. a Kafka message key).
func DecodeEvent(payload []byte, fallbackID string) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if e.ID == "" {
		e.ID = fallbackID
	}
	e.Before = nullToEmpty(e.Before)
	e.After = nullToEmpty(e.After)

	switch {
	case e.Collection == "":
		return Event{}, fmt.Errorf("%w: missing collection", ErrInvalidEvent)
	case e.ID == "":
		return Event{}, fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}

	switch e.Kind {
	case KindCreate, KindUpdate:
		if len(e.After) == 0 {
			return Event{}, fmt.Errorf("%w: %s event without after value", ErrInvalidEvent, e.Kind)
		}
	case KindDelete:
	default:
		return Event{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	return e, nil
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}

// DecodeAfter unmarshals the post-change value into v.
func (e Event) DecodeAfter(v interface{}) error {
	if len(e.After) == 0 {
		return fmt.Errorf("%w: no after value", ErrInvalidEvent)
	}
	return json.Unmarshal(e.After, v)
}

// DecodeBefore unmarshals the pre-change value into v and reports whether
// the event carried one.
func (e Event) DecodeBefore(v interface{}) (bool, error) {
	if len(e.Before) == 0 {
		return false, nil
	}
	return true, json.Unmarshal(e.Before, v)
}
