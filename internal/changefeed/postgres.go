// internal/changefeed/postgres.go
package changefeed

import (
	"context"
	"fmt"
	"time"

	"coachme-notifier/internal/common/logger"

	"github.com/lib/pq"
)

type listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PostgresSource receives change events published with pg_notify by the
// record store's row triggers.
type PostgresSource struct {
	channel      string
	pingInterval time.Duration
	logger       logger.Logger
	newListener  func() listener
}

func NewPostgresSource(dsn, channel string, log logger.Logger) *PostgresSource {
	s := &PostgresSource{
		channel:      channel,
		pingInterval: 90 * time.Second,
		logger:       log.WithFields(map[string]interface{}{"source": "postgres", "channel": channel}),
	}
	s.newListener = func() listener {
		return pq.NewListener(dsn, 10*time.Second, time.Minute, s.logListenerEvent)
	}
	return s
}

func (s *PostgresSource) logListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		s.logger.Info("listener connected", nil)
	case pq.ListenerEventDisconnected:
		s.logger.Warn("listener disconnected", map[string]interface{}{"error": err})
	case pq.ListenerEventReconnected:
		s.logger.Info("listener reconnected", nil)
	case pq.ListenerEventConnectionAttemptFailed:
		s.logger.Warn("listener connection attempt failed", map[string]interface{}{"error": err})
	}
}

func (s *PostgresSource) Run(ctx context.Context, sink Sink) error {
	l := s.newListener()
	defer l.Close()

	if err := l.Listen(s.channel); err != nil {
		return fmt.Errorf("listen %s: %w", s.channel, err)
	}
	s.logger.Info("listening for record changes", nil)

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	notifications := l.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return fmt.Errorf("listener closed")
			}
			if n == nil {
				// nil is sent after a reconnect; notifications in the gap are lost
				s.logger.Warn("change feed reconnected, events may have been missed", nil)
				continue
			}
			deliver(ctx, sink, s.logger, []byte(n.Extra), "")
		case <-ticker.C:
			if err := l.Ping(); err != nil {
				s.logger.Warn("listener ping failed", map[string]interface{}{"error": err})
			}
		}
	}
}
