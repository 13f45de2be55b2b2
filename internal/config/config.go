// Package config provides configuration loading and validation for the
// Workflowy Slack bot. Values come from defaults, an optional config.yaml,
// and BOT_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultBotName = "workflowy_bot"

	DefaultDatabasePath = "data/workflowybot.db"

	DefaultWorkflowyBaseURL   = "https://workflowy.com"
	DefaultWorkflowyProjectID = "KPkbNascH7"
	DefaultExtractor          = "outline"

	DefaultDailySchedule = "0 0 9 * * *"
)

// Config holds the complete application configuration. It is constructed
// once by Load with all defaults resolved and is not mutated afterwards.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Workflowy WorkflowyConfig `mapstructure:"workflowy"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// SlackConfig holds the Slack credential and the bot's display name.
// The name is matched against the workspace user roster at startup to
// resolve the bot's own identity.
type SlackConfig struct {
	Token   string `mapstructure:"token"    validate:"required"`
	BotName string `mapstructure:"bot_name" validate:"required"`
}

// DatabaseConfig holds the persistence store location. The file must
// already exist when the bot starts; it is created by the createdb utility.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// WorkflowyConfig identifies the shared Workflowy document and selects the
// extraction strategy used to render replies.
type WorkflowyConfig struct {
	BaseURL         string `mapstructure:"base_url"          validate:"required,url"`
	SharedProjectID string `mapstructure:"shared_project_id" validate:"required"`
	Extractor       string `mapstructure:"extractor"         validate:"oneof=outline title"`
}

// SchedulerConfig controls the optional daily schedule announcement.
type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DailyCron  string `mapstructure:"daily_cron"`
	DailyQuery string `mapstructure:"daily_query"`
}

// Load reads configuration from config.yaml (optional) and BOT_* environment
// variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file is optional; defaults plus env are enough.
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.json", DefaultLogJSON)

	// An explicit empty default makes BOT_SLACK_TOKEN visible to Unmarshal;
	// validation still rejects a missing token.
	viper.SetDefault("slack.token", "")
	viper.SetDefault("slack.bot_name", DefaultBotName)

	viper.SetDefault("database.path", DefaultDatabasePath)

	viper.SetDefault("workflowy.base_url", DefaultWorkflowyBaseURL)
	viper.SetDefault("workflowy.shared_project_id", DefaultWorkflowyProjectID)
	viper.SetDefault("workflowy.extractor", DefaultExtractor)

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.daily_cron", DefaultDailySchedule)
	viper.SetDefault("scheduler.daily_query", "")
}
