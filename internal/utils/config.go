package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort string
	JWTSecret  string
	// TokenTTL of zero means issued tokens never expire and stay valid
	// until revoked.
	TokenTTL time.Duration
	Mongo    MongoConfig
	SMTP     SMTPConfig
	Logging  LoggingConfig
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Enabled reports whether outbound email is configured at all.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

func LoadConfig() (*Config, error) {
	smtpUser := envOrDefault("SMTP_USERNAME", "")

	cfg := &Config{
		ServerPort: envOrDefault("PORT", "8080"),
		JWTSecret:  strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:   parseDuration(envOrDefault("TOKEN_TTL", "0"), 0),
		Mongo: MongoConfig{
			URI:            envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
			Database:       envOrDefault("MONGO_DATABASE", "task-app"),
			ConnectTimeout: parseDuration(envOrDefault("MONGO_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     envOrDefault("SMTP_HOST", ""),
			Port:     envOrDefault("SMTP_PORT", "587"),
			Username: smtpUser,
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOrDefault("SMTP_FROM", smtpUser),
		},
		Logging: LoggingConfig{
			Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
			Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
			EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
			ServiceName:  envOrDefault("SERVICE_NAME", "task-api"),
		},
	}

	return cfg, cfg.validate()
}

// validate rejects configurations that must not reach production, most
// importantly a missing signing secret: there is no safe default for it.
func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("missing required environment variable: JWT_SECRET")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}
