package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-agent/internal/models"
)

const testYAML = `
ai:
  provider: openrouter
  model: openai/gpt-4o-mini
generator:
  min_length: 150
  max_length: 900
  retry_delay: 5s
bonuses:
  - name: Casinò Demo
    text: 50 giri gratis
    url: https://casino.example/r?aff=1
telegram:
  channel: "@demo"
deploy:
  restart_command: systemctl restart channel-agent
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// clearEnv keeps variables from the developer's shell out of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CHANNEL_AGENT_AI_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"CHANNEL_AGENT_AI_PROVIDER", "AI_PROVIDER",
		"CHANNEL_AGENT_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN",
		"CHANNEL_AGENT_TELEGRAM_CHANNEL", "TELEGRAM_CHANNEL",
		"SERVER_HOST", "SERVER_USER", "SERVER_PATH", "SSH_KEY_PATH",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.AI.Provider)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 150, cfg.Generator.MinLength)
	assert.Equal(t, 900, cfg.Generator.MaxLength)
	assert.Equal(t, 5*time.Second, cfg.Generator.RetryDelay)
	assert.Equal(t, []models.Bonus{{Name: "Casinò Demo", Text: "50 giri gratis", URL: "https://casino.example/r?aff=1"}}, cfg.Bonuses)
	assert.Equal(t, "@demo", cfg.Telegram.Channel)
	assert.Equal(t, "systemctl restart channel-agent", cfg.Deploy.RestartCommand)

	// Defaults fill what the file leaves out
	assert.Equal(t, "./data/history.db", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Generator.MaxAttempts)
	assert.True(t, cfg.Generator.FallbackEnabled)
	assert.Len(t, cfg.Scheduler.GenerateCrons, 3)
	assert.Equal(t, []string{".git", ".env", "data/*.db"}, cfg.Deploy.Excludes)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadDeployFromServerVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_HOST", "bot.example.org")
	t.Setenv("SERVER_USER", "deploy")
	t.Setenv("SERVER_PATH", "/srv/channel-agent")
	t.Setenv("SSH_KEY_PATH", "/home/deploy/.ssh/id_ed25519")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "bot.example.org", cfg.Deploy.Host)
	assert.Equal(t, "deploy", cfg.Deploy.User)
	assert.Equal(t, "/srv/channel-agent", cfg.Deploy.Path)
	assert.Equal(t, "/home/deploy/.ssh/id_ed25519", cfg.Deploy.KeyPath)
}

func TestLoadProviderKeyFallbacks(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"openrouter", map[string]string{"OPENROUTER_API_KEY": "sk-or"}, "sk-or"},
		{"openai", map[string]string{"OPENAI_API_KEY": "sk-openai"}, "sk-openai"},
		{"anthropic", map[string]string{"ANTHROPIC_API_KEY": "sk-ant"}, "sk-ant"},
		{"prefixed wins", map[string]string{"CHANNEL_AGENT_AI_API_KEY": "sk-own", "OPENAI_API_KEY": "sk-openai"}, "sk-own"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, testYAML))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.AI.APIKey)
		})
	}
}

func TestLoadTelegramFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL", "-1001234567890")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "-1001234567890", cfg.Telegram.Channel)
	assert.NoError(t, cfg.ValidateTelegram())
}

func validConfig() *Config {
	return &Config{
		AI: AIConfig{Provider: "openrouter", APIKey: "sk-or", Model: "openai/gpt-4o-mini"},
		Generator: GeneratorConfig{
			MinLength: 150,
			MaxLength: 900,
		},
		Bonuses: []models.Bonus{{Name: "Demo", Text: "50 giri gratis", URL: "https://casino.example/r"}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"anthropic", func(c *Config) { c.AI.Provider = "anthropic" }, ""},
		{"unknown provider", func(c *Config) { c.AI.Provider = "ollama" }, "ai.provider"},
		{"missing key", func(c *Config) { c.AI.APIKey = "" }, "ai.api_key"},
		{"missing model", func(c *Config) { c.AI.Model = "" }, "ai.model"},
		{"no bonuses", func(c *Config) { c.Bonuses = nil }, "bonus"},
		{"bad bonus url", func(c *Config) { c.Bonuses[0].URL = "casino.example" }, "bonuses[0]"},
		{"min equals max", func(c *Config) { c.Generator.MinLength = 900 }, "min_length"},
		{"min above max", func(c *Config) { c.Generator.MinLength = 1000 }, "min_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTelegram(t *testing.T) {
	c := validConfig()
	assert.ErrorContains(t, c.ValidateTelegram(), "bot_token")

	c.Telegram.BotToken = "123:abc"
	assert.ErrorContains(t, c.ValidateTelegram(), "channel")

	c.Telegram.Channel = "@demo"
	assert.NoError(t, c.ValidateTelegram())
}
