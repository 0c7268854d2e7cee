// internal/changefeed/source.go
package changefeed

import (
	"context"
	"time"

	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/common/metrics"
)

// Sink accepts decoded events; *Router implements it.
type Sink interface {
	Dispatch(ctx context.Context, e Event) bool
}

// Source delivers change events to a sink until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, sink Sink) error
}

func deliver(ctx context.Context, sink Sink, log logger.Logger, payload []byte, fallbackID string) {
	e, err := DecodeEvent(payload, fallbackID)
	if err != nil {
		metrics.ChangeEventsDropped.WithLabelValues("decode").Inc()
		log.Warn("change event discarded", map[string]interface{}{
			"error": err,
			"bytes": len(payload),
		})
		return
	}
	e.ReceivedAt = time.Now()
	metrics.ChangeEventsReceived.WithLabelValues(e.Collection, string(e.Kind)).Inc()

	if !sink.Dispatch(ctx, e) {
		metrics.ChangeEventsDropped.WithLabelValues("unrouted").Inc()
		log.Debug("no trigger for change event", map[string]interface{}{
			"collection": e.Collection,
			"kind":       string(e.Kind),
			"recordId":   e.ID,
		})
	}
}
