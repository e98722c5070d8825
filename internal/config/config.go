// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port      int           `yaml:"port"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// DispatchConfig is the retry/backoff policy. The attempt budget and the
// backoff base were policy defaults in the original deployment, so they stay
// configurable rather than hard-coded.
type DispatchConfig struct {
	Workers      int           `yaml:"workers"`
	MaxAttempts  int           `yaml:"max_attempts"`  // provider rejections before abandoned
	TransientCap int           `yaml:"transient_cap"` // unavailable results before abandoned
	BackoffBase  time.Duration `yaml:"backoff_base"`
	BackoffMax   time.Duration `yaml:"backoff_max"`
	PollInterval time.Duration `yaml:"poll_interval"` // confirmed-order status polling
}

type ProviderConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Pickup  string        `yaml:"pickup_address"` // courier providers only
}

type AIConfig struct {
	Backend string `yaml:"backend"` // openai|gemini
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type BotConfig struct {
	Token   string `yaml:"token"`
	Workers int    `yaml:"workers"`
}

type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Config struct {
	Log       LogConfig                 `yaml:"log"`
	HTTP      HTTPConfig                `yaml:"http"`
	Database  DatabaseConfig            `yaml:"database"`
	Redis     RedisConfig               `yaml:"redis"`
	Dispatch  DispatchConfig            `yaml:"dispatch"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	AI        AIConfig                  `yaml:"ai"`
	Bot       BotConfig                 `yaml:"bot"`
	Notify    NotifyConfig              `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.HTTP.JWTSecret == "" && !dev {
		return nil, errors.New("http.jwt_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) ApplyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.JWTTTL <= 0 {
		cfg.HTTP.JWTTTL = 24 * time.Hour
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Dispatch.Workers <= 0 {
		cfg.Dispatch.Workers = 4
	}
	if cfg.Dispatch.MaxAttempts <= 0 {
		cfg.Dispatch.MaxAttempts = 3
	}
	if cfg.Dispatch.TransientCap <= 0 {
		cfg.Dispatch.TransientCap = 5
	}
	if cfg.Dispatch.BackoffBase <= 0 {
		cfg.Dispatch.BackoffBase = 500 * time.Millisecond
	}
	if cfg.Dispatch.BackoffMax <= 0 {
		cfg.Dispatch.BackoffMax = 30 * time.Second
	}
	if cfg.Dispatch.PollInterval <= 0 {
		cfg.Dispatch.PollInterval = 2 * time.Second
	}
	if cfg.AI.Backend == "" {
		cfg.AI.Backend = "openai"
	}
	// Backend-specific base URL and model defaults live in the extractor
	// constructors; an empty value means "use the backend's default".
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = 10 * time.Second
	}
	for name, p := range cfg.Providers {
		if p.Timeout <= 0 {
			p.Timeout = 15 * time.Second
			cfg.Providers[name] = p
		}
	}
}
