package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/channel-agent/internal/models"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Bonuses   []models.Bonus  `mapstructure:"bonuses"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Deploy    DeployConfig    `mapstructure:"deploy"`
}

// DatabaseConfig holds the history database settings
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"` // sqlite file path
}

// AIConfig holds completion API settings
type AIConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, openrouter or anthropic
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"` // overrides the provider default
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	// OpenRouter attribution headers
	Referer string `mapstructure:"referer"`
	Title   string `mapstructure:"title"`
}

// GeneratorConfig holds post generation and validation settings
type GeneratorConfig struct {
	MaxAttempts         int           `mapstructure:"max_attempts"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	MinLength           int           `mapstructure:"min_length"`
	MaxLength           int           `mapstructure:"max_length"`
	HistorySize         int           `mapstructure:"history_size"`         // posts compared for structural dedup
	RecentTemplates     int           `mapstructure:"recent_templates"`     // templates kept out of rotation
	RecentFormats       int           `mapstructure:"recent_formats"`       // link formats kept out of rotation
	RecentBonuses       int           `mapstructure:"recent_bonuses"`       // bonuses kept out of rotation
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"` // shingle Jaccard, 0-1
	ForbiddenPhrases    []string      `mapstructure:"forbidden_phrases"`    // added to the built-in list
	LinkFormats         []string      `mapstructure:"link_formats"`         // empty means all formats
	FallbackEnabled     bool          `mapstructure:"fallback_enabled"`
	ChannelName         string        `mapstructure:"channel_name"`
}

// CorpusConfig holds the post corpus file settings
type CorpusConfig struct {
	Path            string `mapstructure:"path"`
	AppendGenerated bool   `mapstructure:"append_generated"`
}

// TelegramConfig holds channel publishing settings
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	Channel  string `mapstructure:"channel"` // @username or numeric chat id
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	GenerateCrons []string `mapstructure:"generate_crons"`
	AutoPublish   bool     `mapstructure:"auto_publish"`
	HealthPort    string   `mapstructure:"health_port"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	CompletionsPerMinute int `mapstructure:"completions_per_minute"`
	TelegramPerMinute    int `mapstructure:"telegram_per_minute"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or file path
}

// TrackerConfig holds Google Sheets tracker settings
type TrackerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SheetName          string `mapstructure:"sheet_name"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
}

// DeployConfig holds the deploy target. Host, user, path and key come from
// SERVER_HOST, SERVER_USER, SERVER_PATH and SSH_KEY_PATH.
type DeployConfig struct {
	Host           string   `mapstructure:"host"`
	User           string   `mapstructure:"user"`
	Path           string   `mapstructure:"path"`
	KeyPath        string   `mapstructure:"key_path"`
	Source         string   `mapstructure:"source"`
	Excludes       []string `mapstructure:"excludes"`
	RestartCommand string   `mapstructure:"restart_command"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".channel-agent"))
		}
	}

	v.SetEnvPrefix("CHANNEL_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets and provider-native variable names
	v.BindEnv("ai.api_key", "CHANNEL_AGENT_AI_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("ai.provider", "CHANNEL_AGENT_AI_PROVIDER", "AI_PROVIDER")
	v.BindEnv("telegram.bot_token", "CHANNEL_AGENT_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.channel", "CHANNEL_AGENT_TELEGRAM_CHANNEL", "TELEGRAM_CHANNEL")
	v.BindEnv("tracker.service_account_json", "CHANNEL_AGENT_TRACKER_SERVICE_ACCOUNT_JSON")

	// The deploy wrapper reads the bare variable names
	v.BindEnv("deploy.host", "SERVER_HOST")
	v.BindEnv("deploy.user", "SERVER_USER")
	v.BindEnv("deploy.path", "SERVER_PATH")
	v.BindEnv("deploy.key_path", "SSH_KEY_PATH")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "./data/history.db")

	v.SetDefault("ai.provider", "openrouter")
	v.SetDefault("ai.model", "openai/gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 700)
	v.SetDefault("ai.temperature", 0.9)
	v.SetDefault("ai.title", "channel-agent")

	v.SetDefault("generator.max_attempts", 3)
	v.SetDefault("generator.retry_delay", "3s")
	v.SetDefault("generator.min_length", 180)
	v.SetDefault("generator.max_length", 1000)
	v.SetDefault("generator.history_size", 30)
	v.SetDefault("generator.recent_templates", 3)
	v.SetDefault("generator.recent_formats", 2)
	v.SetDefault("generator.recent_bonuses", 1)
	v.SetDefault("generator.similarity_threshold", 0.55)
	v.SetDefault("generator.fallback_enabled", true)

	v.SetDefault("corpus.path", "./data/my_posts.json")
	v.SetDefault("corpus.append_generated", true)

	v.SetDefault("scheduler.generate_crons", []string{
		"0 10 * * *",
		"0 15 * * *",
		"30 20 * * *",
	})
	v.SetDefault("scheduler.auto_publish", false)
	v.SetDefault("scheduler.health_port", "10000")

	v.SetDefault("rate_limit.completions_per_minute", 20)
	v.SetDefault("rate_limit.telegram_per_minute", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("tracker.enabled", false)
	v.SetDefault("tracker.sheet_name", "Generated")

	v.SetDefault("deploy.source", "./")
	v.SetDefault("deploy.excludes", []string{".git", ".env", "data/*.db"})
}

// Validate checks what the configured completion provider needs
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "openai", "openrouter", "anthropic":
	default:
		return fmt.Errorf("ai.provider must be openai, openrouter or anthropic, got %q", c.AI.Provider)
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if len(c.Bonuses) == 0 {
		return fmt.Errorf("at least one bonus must be configured")
	}
	for i, b := range c.Bonuses {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bonuses[%d]: %w", i, err)
		}
	}
	if c.Generator.MinLength >= c.Generator.MaxLength {
		return fmt.Errorf("generator.min_length must be below generator.max_length")
	}
	return nil
}

// ValidateTelegram checks the channel publishing settings
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.Channel == "" {
		return fmt.Errorf("telegram.channel is required")
	}
	return nil
}
