// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig                `mapstructure:"app"`
	Logging    LoggingConfig            `mapstructure:"logging"`
	Server     ServerConfig             `mapstructure:"server"`
	Database   DatabaseConfig           `mapstructure:"database"`
	Camunda    CamundaConfig            `mapstructure:"camunda"`
	Push       PushConfig               `mapstructure:"push"`
	ChangeFeed ChangeFeedConfig         `mapstructure:"change_feed"`
	Schedule   ScheduleConfig           `mapstructure:"schedule"`
	Triggers   map[string]TriggerConfig `mapstructure:"triggers"`
	Audit      AuditConfig              `mapstructure:"audit"`
}

type AppConfig struct {
	Name         string `mapstructure:"name"`
	Version      string `mapstructure:"version"`
	Environment  string `mapstructure:"environment"`
	RegistryPath string `mapstructure:"registry_path"` // optional trigger registry override
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	ProcessFile    string `mapstructure:"process_file"`    // BPMN deployed on start when set
}

// PushConfig configures SNS mobile push.
type PushConfig struct {
	Region                 string `mapstructure:"region"`
	PlatformApplicationARN string `mapstructure:"platform_application_arn"`
	EndpointCacheTTL       int    `mapstructure:"endpoint_cache_ttl"` // milliseconds
}

const (
	ChangeFeedPostgres = "postgres"
	ChangeFeedKafka    = "kafka"
)

type ChangeFeedConfig struct {
	Source      string      `mapstructure:"source"`  // postgres | kafka
	Channel     string      `mapstructure:"channel"` // LISTEN channel for the postgres source
	MaxInFlight int         `mapstructure:"max_in_flight"`
	Kafka       KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

const (
	ScheduleLocal = "local"
	ScheduleZeebe = "zeebe"
)

type ScheduleConfig struct {
	Mode        string `mapstructure:"mode"` // local | zeebe
	Hour        int    `mapstructure:"hour"`
	Minute      int    `mapstructure:"minute"`
	Timezone    string `mapstructure:"timezone"` // empty = process local time
	LockTTL     int    `mapstructure:"lock_ttl"` // milliseconds
	MaxAttempts int    `mapstructure:"max_attempts"`
	RetryDelay  int    `mapstructure:"retry_delay"` // milliseconds
	JobType     string `mapstructure:"job_type"`
}

// TriggerConfig holds the settings every trigger shares plus the few
// trigger-specific switches.
type TriggerConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	Timeout             int  `mapstructure:"timeout"` // milliseconds
	SkipUnchangedStatus bool `mapstructure:"skip_unchanged_status"`
	MaxConcurrency      int  `mapstructure:"max_concurrency"` // reminder sweep only; 0 = unbounded
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}
