// internal/changefeed/kafka.go
package changefeed

import (
	"context"
	"errors"
	"fmt"

	"coachme-notifier/internal/common/config"
	"coachme-notifier/internal/common/logger"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes change events from a CDC topic. The message key is
// used as the record id when the payload has none.
type KafkaSource struct {
	reader messageReader
	logger logger.Logger
}

func NewKafkaSource(cfg config.KafkaConfig, log logger.Logger) *KafkaSource {
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		}),
		logger: log.WithFields(map[string]interface{}{"source": "kafka", "topic": cfg.Topic}),
	}
}

func (s *KafkaSource) Run(ctx context.Context, sink Sink) error {
	defer s.reader.Close()

	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch change event: %w", err)
		}

		deliver(ctx, sink, s.logger, m.Value, string(m.Key))

		// handlers are fire-and-forget, so the offset moves on once the event is handed off
		if err := s.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			s.logger.Warn("commit failed", map[string]interface{}{
				"error":     err,
				"partition": m.Partition,
				"offset":    m.Offset,
			})
		}
	}
}
