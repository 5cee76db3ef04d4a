// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App     AppConfig     `koanf:"app"`
	API     APIConfig     `koanf:"api"`
	State   StateConfig   `koanf:"state"`
	Log     LogConfig     `koanf:"log"`
	Otel    OtelConfig    `koanf:"otel"`
	StubIDP StubIDPConfig `koanf:"stub_idp"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type APIConfig struct {
	BaseURL    string        `koanf:"base_url"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

type StateConfig struct {
	Dir string `koanf:"dir"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type StubIDPConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	TokenExpire     time.Duration `koanf:"token_expire"`
	Issuer          string        `koanf:"issuer"`
	Audience        string        `koanf:"audience"`
	LoginPerMinute  int           `koanf:"login_per_minute"`
	LoginBurst      int           `koanf:"login_burst"`
}

// Load reads defaults, an optional YAML file, and environment
// overrides, in that order. The result is constructed plainly and
// passed by reference; nothing here is a process-wide singleton.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// The config file is optional for the CLI; defaults plus env vars
	// are enough to run against a local stub IdP.
	if configPath != "" {
		if _, statErr := os.Stat(configPath); statErr == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.State.Dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		cfg.State.Dir = filepath.Join(base, "civiclens-console")
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Civiclens Console",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"api.base_url":    "http://localhost:8080",
		"api.timeout":     "30s",
		"api.max_retries": 2,

		"log.level":  "info",
		"log.format": "text",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "console-client",

		"stub_idp.host":             "127.0.0.1",
		"stub_idp.port":             8080,
		"stub_idp.read_timeout":     "15s",
		"stub_idp.write_timeout":    "15s",
		"stub_idp.shutdown_timeout": "10s",
		"stub_idp.token_expire":     "15m",
		"stub_idp.issuer":           "civiclens-stub-idp",
		"stub_idp.audience":         "civiclens-console",
		"stub_idp.login_per_minute": 10,
		"stub_idp.login_burst":      5,
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"API_BASE_URL":                "api.base_url",
	"API_TIMEOUT":                 "api.timeout",
	"API_MAX_RETRIES":             "api.max_retries",
	"STATE_DIR":                   "state.dir",
	"ENVIRONMENT":                 "app.environment",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"STUB_IDP_HOST":               "stub_idp.host",
	"STUB_IDP_PORT":               "stub_idp.port",
	"STUB_IDP_TOKEN_EXPIRE":       "stub_idp.token_expire",
	"STUB_IDP_ISSUER":             "stub_idp.issuer",
	"STUB_IDP_AUDIENCE":           "stub_idp.audience",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if c.StubIDP.TokenExpire <= 0 {
		return fmt.Errorf("stub_idp.token_expire must be positive")
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *StubIDPConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
