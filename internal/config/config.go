// Package config manages application configuration from environment variables,
// config files, and default values, and resolves the runtime context the
// process runs under.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/edgard/attendancebot/internal/errs"
)

// EnvPrefix is the prefix for environment overrides, e.g. BOT_TELEGRAM_TOKEN.
const EnvPrefix = "BOT"

// Config defines the application configuration. Values can be set via environment
// variables prefixed with BOT_ (e.g., BOT_CONTEXT) or through config.yaml.
type Config struct {
	Context    string `mapstructure:"context"     validate:"required,oneof=local dev prod"`
	VolumePath string `mapstructure:"volume_path"`

	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Log       LogConfig       `mapstructure:"log"`
	Bot       BotConfig       `mapstructure:"bot"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// TelegramConfig holds the remote client settings.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"        validate:"required"`
	AdminID     int64         `mapstructure:"admin_id"     validate:"gte=0"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"min=1s,max=1m"`
}

// LogConfig holds the logging sink settings.
type LogConfig struct {
	Level            string `mapstructure:"level"               validate:"required,oneof=debug info warn error"`
	FileName         string `mapstructure:"file_name"           validate:"required"`
	MaxFileSizeBytes int64  `mapstructure:"max_file_size_bytes" validate:"min=1024"`
	MaxFileCount     int    `mapstructure:"max_file_count"      validate:"min=2,max=100"`
	Append           bool   `mapstructure:"append"`
	Console          bool   `mapstructure:"console"`
	ConsoleJSON      bool   `mapstructure:"console_json"`
}

// BotConfig holds message dispatching settings.
type BotConfig struct {
	MaxConcurrency  int           `mapstructure:"max_concurrency"  validate:"min=1,max=1024"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout"  validate:"min=1s,max=10m"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=5m"`
	VisitsLimit     int           `mapstructure:"visits_limit"     validate:"min=1,max=100"`
}

// MessagesConfig holds the user-facing reply texts.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"           validate:"required"`
	Help             string `mapstructure:"help"              validate:"required"`
	Registered       string `mapstructure:"registered"        validate:"required"`
	NotRegistered    string `mapstructure:"not_registered"    validate:"required"`
	ProvideName      string `mapstructure:"provide_name"      validate:"required"`
	VisitRecorded    string `mapstructure:"visit_recorded"    validate:"required"`
	VisitAlready     string `mapstructure:"visit_already"     validate:"required"`
	NoVisits         string `mapstructure:"no_visits"         validate:"required"`
	NoStudents       string `mapstructure:"no_students"       validate:"required"`
	NotAuthorized    string `mapstructure:"not_authorized"    validate:"required"`
	GeneralError     string `mapstructure:"general_error"     validate:"required"`
	DailySummary     string `mapstructure:"daily_summary"     validate:"required"`
	StudentsHeader   string `mapstructure:"students_header"   validate:"required"`
	VisitsHeader     string `mapstructure:"visits_header"     validate:"required"`
	RegistrationName string `mapstructure:"registration_name" validate:"required"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures a single scheduled task. Schedule is a cron
// expression with a seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MetricsConfig configures the optional metrics endpoint. An empty ListenAddr
// disables it.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"omitempty,hostname_port"`
}

// Load reads defaults, the optional YAML file at path and BOT_* environment
// variables, in increasing priority, and validates the result. A missing file
// is not an error; an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, errs.NewConfigurationError(fmt.Sprintf("failed to read config file %s", path), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewConfigurationError("failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errs.NewConfigurationError("invalid configuration", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
