package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Env      string `koanf:"app_env" yaml:"app_env"`
	Port     string `koanf:"port" yaml:"port"`
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	DatabasePath     string        `koanf:"database_path" yaml:"database_path"`
	VisitorRetention time.Duration `koanf:"visitor_retention" yaml:"visitor_retention"`

	SMTPHost string `koanf:"smtp_host" yaml:"smtp_host"`
	SMTPPort string `koanf:"smtp_port" yaml:"smtp_port"`
	SMTPUser string `koanf:"smtp_user" yaml:"smtp_user"`
	SMTPPass string `koanf:"smtp_pass" yaml:"-"`
	ToEmail  string `koanf:"to_email" yaml:"to_email"`

	AdminUsername     string        `koanf:"admin_username" yaml:"admin_username"`
	AdminPassword     string        `koanf:"admin_password" yaml:"-"`
	AdminPasswordHash string        `koanf:"admin_password_hash" yaml:"-"`
	AdminSecret       string        `koanf:"admin_secret" yaml:"-"`
	AdminTokenTTL     time.Duration `koanf:"admin_token_ttl" yaml:"admin_token_ttl"`

	SessionTTL  time.Duration `koanf:"session_ttl" yaml:"session_ttl"`
	MaxSessions int           `koanf:"max_sessions" yaml:"max_sessions"`
	NoticeUnit  time.Duration `koanf:"notice_unit" yaml:"notice_unit"`

	RateLimitLimit  int64         `koanf:"rate_limit_limit" yaml:"rate_limit_limit"`
	RateLimitPeriod time.Duration `koanf:"rate_limit_period" yaml:"rate_limit_period"`
}

// envKeys are the environment variables read as overrides. They carry no
// prefix so existing deployments keep working.
var envKeys = map[string]bool{
	"APP_ENV":             true,
	"PORT":                true,
	"LOG_LEVEL":           true,
	"DATABASE_PATH":       true,
	"VISITOR_RETENTION":   true,
	"SMTP_HOST":           true,
	"SMTP_PORT":           true,
	"SMTP_USER":           true,
	"SMTP_PASS":           true,
	"TO_EMAIL":            true,
	"ADMIN_USERNAME":      true,
	"ADMIN_PASSWORD":      true,
	"ADMIN_PASSWORD_HASH": true,
	"ADMIN_SECRET":        true,
	"ADMIN_TOKEN_TTL":     true,
	"SESSION_TTL":         true,
	"MAX_SESSIONS":        true,
	"NOTICE_UNIT":         true,
	"RATE_LIMIT_LIMIT":    true,
	"RATE_LIMIT_PERIOD":   true,
}

// Default returns the development configuration.
func Default() *Config {
	return &Config{
		Env:              "development",
		Port:             "8080",
		LogLevel:         "info",
		DatabasePath:     "folio.db",
		VisitorRetention: 365 * 24 * time.Hour,
		SMTPHost:         "smtp.gmail.com",
		SMTPPort:         "587",
		AdminUsername:    "admin",
		AdminPassword:    "admin123",
		AdminSecret:      "development-only-admin-secret-change-me",
		AdminTokenTTL:    24 * time.Hour,
		SessionTTL:       30 * time.Minute,
		MaxSessions:      10000,
		NoticeUnit:       time.Second,
		RateLimitLimit:   10,
		RateLimitPeriod:  time.Minute,
	}
}

// Load reads .env if present, then the optional YAML file at path, then the
// known environment variables, each layer overriding the previous one.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "config: reading .env")
	}

	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "config: reading %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "config: accessing %s", path)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		if !envKeys[s] {
			return ""
		}
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, errors.Wrap(err, "config: loading env overrides")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshalling")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port is required")
	}
	if c.NoticeUnit <= 0 {
		return errors.New("config: notice_unit must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: session_ttl must be positive")
	}
	if c.MaxSessions < 0 {
		return errors.New("config: max_sessions must not be negative")
	}
	if c.RateLimitLimit <= 0 || c.RateLimitPeriod <= 0 {
		return errors.New("config: rate limit must be positive")
	}

	if c.IsProduction() {
		if len(c.AdminSecret) < 32 || c.AdminSecret == Default().AdminSecret {
			return errors.New("config: ADMIN_SECRET must be set to at least 32 characters in production")
		}
		if c.AdminPasswordHash == "" && (c.AdminPassword == "" || c.AdminPassword == Default().AdminPassword) {
			return errors.New("config: ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set in production")
		}
	}
	return nil
}

// SMTPConfigured reports whether outgoing mail can be sent.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPUser != "" && c.SMTPPass != ""
}

// YAML renders the configuration without secrets.
func (c *Config) YAML() ([]byte, error) {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "config: marshalling")
	}
	return data, nil
}
