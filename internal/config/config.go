// config - источник загрузки конфигурации портала.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Backend  BackendConfig `yaml:"backend"`
	Session  SessionConfig `yaml:"session"`
	Tracing  TracingConfig `yaml:"tracing"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — общий дедлайн входящего запроса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
}

// HTTPConfig — публичный HTTP-сервер портала.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"4321"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// BackendConfig — HTTP API бэкенда, выдающего и обновляющего токены.
type BackendConfig struct {
	BaseURL     string        `yaml:"base_url"     env:"BACKEND_BASE"         env-required:"true"`
	RefreshPath string        `yaml:"refresh_path" env:"BACKEND_REFRESH_PATH" env-default:"/api/v1/authorisation/refresh"`
	ClaimsPath  string        `yaml:"claims_path"  env:"BACKEND_CLAIMS_PATH"  env-default:"/api/v1/authorisation/claims"`
	Timeout     time.Duration `yaml:"timeout"      env:"BACKEND_TIMEOUT"      env-default:"5s"`
}

// SessionConfig — cookie с учётными данными и допуск на рассинхрон часов.
type SessionConfig struct {
	AccessCookie    string        `yaml:"access_cookie"     env:"SESSION_ACCESS_COOKIE"     env-default:"ACSS_TOKN_COOKIE"`
	RefreshCookie   string        `yaml:"refresh_cookie"    env:"SESSION_REFRESH_COOKIE"    env-default:"RFSH_TOKN_COOKIE"`
	CookieTTLMonths int           `yaml:"cookie_ttl_months" env:"SESSION_COOKIE_TTL_MONTHS" env-default:"1"`
	ClockSkew       time.Duration `yaml:"clock_skew"        env:"SESSION_CLOCK_SKEW"        env-default:"30s"`
}

// Validate проверяет согласованность настроек сессии.
func (s SessionConfig) Validate() error {
	switch {
	case s.AccessCookie == "" || s.RefreshCookie == "":
		return errors.New("session: cookie names must not be empty")
	case s.AccessCookie == s.RefreshCookie:
		return errors.New("session: access and refresh cookie names must differ")
	case s.CookieTTLMonths <= 0:
		return errors.New("session: cookie_ttl_months must be positive")
	case s.ClockSkew < 0:
		return errors.New("session: clock_skew must not be negative")
	}
	return nil
}

// TracingConfig — имя сервиса для OpenTelemetry-трейсера.
type TracingConfig struct {
	ServiceName string `yaml:"service_name" env:"TRACING_SERVICE_NAME" env-default:"fleet-portal"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}
		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}
