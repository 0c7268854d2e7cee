// internal/workers/appointment/status-change/config.go
package statuschange

import "time"

type Config struct {
	Timeout time.Duration
	// SkipUnchangedStatus suppresses the send when the event's previous
	// value carries the same status.
	SkipUnchangedStatus bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
