package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key    string
	typ    keyType
	env    string
	secret bool
	// account names the entry in the secrets file for secret keys.
	account string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "FOLIO_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "FOLIO_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "FOLIO_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLIO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "profile.path", typ: kString, env: "FOLIO_PROFILE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Profile.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Profile.Path },
	},
	{
		key: "assistant.provider", typ: kString, env: "FOLIO_ASSISTANT_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Assistant.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.Provider },
	},
	{
		key: "assistant.model", typ: kString, env: "FOLIO_ASSISTANT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Assistant.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.Model },
	},
	{
		key: "assistant.greeting", typ: kString, env: "FOLIO_ASSISTANT_GREETING",
		apply:   func(cfg *Config, v any) { cfg.Assistant.Greeting = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.Greeting },
	},
	{
		key: "assistant.session_ttl", typ: kDuration, env: "FOLIO_ASSISTANT_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.Assistant.SessionTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Assistant.SessionTTL },
	},
	{
		key: "assistant.max_sessions", typ: kInt, env: "FOLIO_ASSISTANT_MAX_SESSIONS",
		apply:   func(cfg *Config, v any) { cfg.Assistant.MaxSessions = v.(int) },
		extract: func(cfg Config) any { return cfg.Assistant.MaxSessions },
	},
	{
		key: "gemini.api_key", typ: kString, env: "FOLIO_GEMINI_API_KEY",
		secret: true, account: "gemini_api_key",
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.base_url", typ: kString, env: "FOLIO_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "openrouter.api_key", typ: kString, env: "FOLIO_OPENROUTER_API_KEY",
		secret: true, account: "openrouter_api_key",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.APIKey },
	},
	{
		key: "openrouter.base_url", typ: kString, env: "FOLIO_OPENROUTER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.BaseURL },
	},
	{
		key: "admin.token", typ: kString, env: "FOLIO_ADMIN_TOKEN",
		secret: true, account: "admin_token",
		apply:   func(cfg *Config, v any) { cfg.Admin.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Admin.Token },
	},
	{
		key: "analytics.enabled", typ: kBool, env: "FOLIO_ANALYTICS_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Analytics.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Analytics.Enabled },
	},
	{
		key: "analytics.retention", typ: kDuration, env: "FOLIO_ANALYTICS_RETENTION",
		apply:   func(cfg *Config, v any) { cfg.Analytics.Retention = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Analytics.Retention },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parseValue converts raw text to the key's declared type. Ints are handled by the
// callers because the backend stores them natively.
func parseValue(s keySpec, raw string) (any, error) {
	switch s.typ {
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		return time.ParseDuration(raw)
	case kInt:
		return strconv.Atoi(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool, kDuration:
			raw, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if !ok || raw == "" {
				continue
			}
			v, err := parseValue(s, raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
				continue
			}
			s.apply(cfg, v)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}

// applySecrets fills secret keys that are still empty from the secrets store.
func applySecrets(cfg *Config, ss secretStore) {
	for _, s := range specs {
		if !s.secret || s.account == "" {
			continue
		}
		if cur, _ := s.extract(*cfg).(string); cur != "" {
			continue
		}
		if v, err := ss.Get(s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}
