// internal/workers/appointment/reminder-sweep/config.go
package remindersweep

import "time"

type Config struct {
	Timeout time.Duration
	// Location defines the calendar day swept. Nil means time.Local.
	Location *time.Location
	// MaxConcurrency caps in-flight sends; zero or less means no cap.
	MaxConcurrency int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  5 * time.Minute,
		Location: time.Local,
	}
}
