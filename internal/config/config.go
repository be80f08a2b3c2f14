// Package config loads folio settings from defaults, the config file, the
// environment and the secrets file, in that order of precedence (lowest
// first), with secrets only filling keys left empty.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Storage    StorageConfig
	Profile    ProfileConfig
	Assistant  AssistantConfig
	Gemini     ProviderConfig
	OpenRouter ProviderConfig
	Admin      AdminConfig
	Analytics  AnalyticsConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	DataDir string
}

type ProfileConfig struct {
	// Path to a JSON profile. Empty uses the embedded record.
	Path string
}

type AssistantConfig struct {
	Provider    string
	Model       string
	Greeting    string
	SessionTTL  time.Duration
	MaxSessions int
}

type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

type AdminConfig struct {
	Token string
}

type AnalyticsConfig struct {
	Enabled   bool
	Retention time.Duration
}

// DefaultGreeting is the first assistant turn of every new widget.
const DefaultGreeting = "Hi! I'm Zadiki's AI assistant. You can ask me about his experience, skills, or even his work in Nairobi!"

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Assistant: AssistantConfig{
			Provider:    "gemini",
			Model:       "gemini-3-flash-preview",
			Greeting:    DefaultGreeting,
			SessionTTL:  30 * time.Minute,
			MaxSessions: 1000,
		},
		OpenRouter: ProviderConfig{
			BaseURL: "https://openrouter.ai/api/v1",
		},
		Analytics: AnalyticsConfig{
			Enabled:   true,
			Retention: 365 * 24 * time.Hour,
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/folio/config.json, then FOLIO_* environment variables,
// then the secrets file at $XDG_DATA_HOME/folio/secrets.json for any API keys
// still empty. A missing API key is not an error; the assistant then answers
// every question with its failure message.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), fileSecrets{path: SecretsFilePath()})
}

func loadWith(b ConfigBackend, ss secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, ss)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Assistant.Provider {
	case "gemini", "openrouter":
	default:
		return fmt.Errorf("invalid assistant.provider %q: want gemini or openrouter", c.Assistant.Provider)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Assistant.SessionTTL <= 0 {
		return fmt.Errorf("assistant.session_ttl must be positive, got %s", c.Assistant.SessionTTL)
	}
	if c.Assistant.MaxSessions < 1 {
		return fmt.Errorf("assistant.max_sessions must be at least 1, got %d", c.Assistant.MaxSessions)
	}
	if c.Analytics.Retention <= 0 {
		return fmt.Errorf("analytics.retention must be positive, got %s", c.Analytics.Retention)
	}
	return nil
}

// Addr is the listen address of folio serve.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ProviderSettings returns the API key and base URL of the selected provider.
func (c Config) ProviderSettings() ProviderConfig {
	if c.Assistant.Provider == "openrouter" {
		return c.OpenRouter
	}
	return c.Gemini
}
