// Package config loads the blogauthd service configuration from environment
// variables, optionally layered over a config file named by CONFIG_FILE.
//
// # Environment Variables
//
//   - ADDR: HTTP listen address. Default: :8080
//   - LOG_LEVEL: debug, info, warn or error. Default: info
//   - DATABASE_URL: Postgres DSN. Empty selects the in-memory user store.
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_PREFIX: secret store.
//   - ACCESS_TOKEN_SECRET, REFRESH_TOKEN_SECRET: HS256 keys, 32+ bytes, distinct.
//   - ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, OTP_TTL, RESET_TOKEN_TTL: durations.
//   - SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM: mail relay.
//     Empty SMTP_HOST logs codes and links instead of mailing them.
//   - RESET_URL: frontend page receiving ?token=.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/spf13/viper"
)

type Config struct {
	Addr     string `mapstructure:"ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	AccessTokenSecret  string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `mapstructure:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL    time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	JWTIssuer          string        `mapstructure:"JWT_ISSUER"`

	OTPTTL        time.Duration `mapstructure:"OTP_TTL"`
	ResetTokenTTL time.Duration `mapstructure:"RESET_TOKEN_TTL"`
	DefaultRole   string        `mapstructure:"DEFAULT_ROLE"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	ResetURL     string `mapstructure:"RESET_URL"`

	CookieSecure   bool `mapstructure:"COOKIE_SECURE"`
	AuditEnabled   bool `mapstructure:"AUDIT_ENABLED"`
	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

var defaults = map[string]any{
	"ADDR":                 ":8080",
	"LOG_LEVEL":            "info",
	"DATABASE_URL":         "",
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"REDIS_PREFIX":         "blogauth",
	"ACCESS_TOKEN_SECRET":  "",
	"REFRESH_TOKEN_SECRET": "",
	"ACCESS_TOKEN_TTL":     "15m",
	"REFRESH_TOKEN_TTL":    "168h",
	"JWT_ISSUER":           "blogauth",
	"OTP_TTL":              "5m",
	"RESET_TOKEN_TTL":      "5m",
	"DEFAULT_ROLE":         "user",
	"SMTP_HOST":            "",
	"SMTP_PORT":            587,
	"SMTP_USERNAME":        "",
	"SMTP_PASSWORD":        "",
	"SMTP_FROM":            "",
	"RESET_URL":            "http://localhost:3000/reset-password",
	"COOKIE_SECURE":        true,
	"AUDIT_ENABLED":        false,
	"METRICS_ENABLED":      true,
}

// Load reads the environment. Every key must have a default: viper only
// resolves AutomaticEnv for keys it already knows.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// AuthConfig maps the service settings onto the engine configuration. The
// result is validated by the engine builder.
func (c *Config) AuthConfig() blogauth.Config {
	cfg := blogauth.DefaultConfig()

	cfg.JWT.Access.PrivateKey = []byte(c.AccessTokenSecret)
	cfg.JWT.Access.TTL = c.AccessTokenTTL
	cfg.JWT.Refresh.PrivateKey = []byte(c.RefreshTokenSecret)
	cfg.JWT.Refresh.TTL = c.RefreshTokenTTL
	cfg.JWT.Issuer = c.JWTIssuer

	cfg.Signup.PendingTTL = c.OTPTTL
	cfg.Signup.DefaultRole = c.DefaultRole
	cfg.PasswordReset.TicketTTL = c.ResetTokenTTL
	cfg.Store.RedisPrefix = c.RedisPrefix

	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled

	return cfg
}
