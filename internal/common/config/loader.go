// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // env overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("schedule.hour", 6)
	v.SetDefault("schedule.minute", 0)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	enableUnsetTriggers(v, &cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are conventionally provided as
// plain environment variables.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Database.Redis.Password == "" {
		cfg.Database.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if cfg.Push.PlatformApplicationARN == "" {
		cfg.Push.PlatformApplicationARN = os.Getenv("SNS_PLATFORM_APPLICATION_ARN")
	}
	if cfg.Push.Region == "" {
		cfg.Push.Region = os.Getenv("AWS_REGION")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "coachme-notifier"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 1
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Push.EndpointCacheTTL == 0 {
		cfg.Push.EndpointCacheTTL = int((24 * time.Hour).Milliseconds())
	}

	if cfg.ChangeFeed.Source == "" {
		cfg.ChangeFeed.Source = ChangeFeedPostgres
	}
	if cfg.ChangeFeed.Channel == "" {
		cfg.ChangeFeed.Channel = "record_changes"
	}
	if cfg.ChangeFeed.MaxInFlight == 0 {
		cfg.ChangeFeed.MaxInFlight = 16
	}
	if cfg.ChangeFeed.Kafka.GroupID == "" {
		cfg.ChangeFeed.Kafka.GroupID = "coachme-notifier"
	}

	if cfg.Schedule.Mode == "" {
		cfg.Schedule.Mode = ScheduleLocal
	}
	if cfg.Schedule.LockTTL == 0 {
		cfg.Schedule.LockTTL = int((23 * time.Hour).Milliseconds())
	}
	if cfg.Schedule.MaxAttempts == 0 {
		cfg.Schedule.MaxAttempts = 3
	}
	if cfg.Schedule.RetryDelay == 0 {
		cfg.Schedule.RetryDelay = 60000
	}
	if cfg.Schedule.JobType == "" {
		cfg.Schedule.JobType = "appointment-reminder-sweep"
	}

	for name, trigger := range cfg.Triggers {
		if trigger.Timeout == 0 {
			trigger.Timeout = 30000
		}
		cfg.Triggers[name] = trigger
	}

	if cfg.Audit.Index == "" {
		cfg.Audit.Index = "push-dispatch-outcomes"
	}
}

// enableUnsetTriggers turns on every configured trigger whose entry omits
// the enabled key.
func enableUnsetTriggers(v *viper.Viper, cfg *Config) {
	for name, trigger := range cfg.Triggers {
		if !v.IsSet("triggers." + name + ".enabled") {
			trigger.Enabled = true
			cfg.Triggers[name] = trigger
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Push.PlatformApplicationARN == "" {
		return fmt.Errorf("push.platform_application_arn is required")
	}
	if cfg.Push.Region == "" {
		return fmt.Errorf("push.region is required")
	}

	switch cfg.ChangeFeed.Source {
	case ChangeFeedPostgres:
	case ChangeFeedKafka:
		if len(cfg.ChangeFeed.Kafka.Brokers) == 0 || cfg.ChangeFeed.Kafka.Topic == "" {
			return fmt.Errorf("change_feed.kafka.brokers and change_feed.kafka.topic are required for the kafka source")
		}
	default:
		return fmt.Errorf("change_feed.source must be %q or %q, got %q", ChangeFeedPostgres, ChangeFeedKafka, cfg.ChangeFeed.Source)
	}

	switch cfg.Schedule.Mode {
	case ScheduleLocal:
	case ScheduleZeebe:
		if cfg.Camunda.BrokerAddress == "" {
			return fmt.Errorf("camunda.broker_address is required when schedule.mode is %q", ScheduleZeebe)
		}
	default:
		return fmt.Errorf("schedule.mode must be %q or %q, got %q", ScheduleLocal, ScheduleZeebe, cfg.Schedule.Mode)
	}
	if cfg.Schedule.Hour < 0 || cfg.Schedule.Hour > 23 {
		return fmt.Errorf("schedule.hour must be within 0-23")
	}
	if cfg.Schedule.Minute < 0 || cfg.Schedule.Minute > 59 {
		return fmt.Errorf("schedule.minute must be within 0-59")
	}
	if _, err := cfg.Schedule.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}

	if cfg.Audit.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when audit is enabled")
	}

	return nil
}

// Location resolves the schedule time zone; empty means process local time.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetTriggerConfig returns the trigger's settings, falling back to an enabled
// trigger with a 30s timeout.
func GetTriggerConfig(cfg *Config, name string) TriggerConfig {
	if trigger, exists := cfg.Triggers[name]; exists {
		return trigger
	}
	return TriggerConfig{Enabled: true, Timeout: 30000}
}

func IsTriggerEnabled(cfg *Config, name string) bool {
	return GetTriggerConfig(cfg, name).Enabled
}
