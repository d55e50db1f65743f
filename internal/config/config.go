package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"corpdash/internal/log"
)

// Audit backends.
const (
	AuditNone   = "none"
	AuditSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port                string
	MaxUploadMB         int
	UploadRatePerMinute int
	// TrustedProxies are CIDRs whose X-Forwarded-For is believed, on top of
	// loopback and private ranges.
	TrustedProxies []string

	// Logging
	LogLevel  string
	LogFormat string

	// Sessions
	SessionTTL time.Duration
	SessionMax int

	// Upload audit
	AuditBackend   string
	SQLiteDBPath   string
	AuditRetention time.Duration

	// AMQP, optional
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	// AMQPQueue is consumed by the audit worker only.
	AMQPQueue string
}

func Load() *Config {
	return &Config{
		Port:                getEnv("PORT", "8080"),
		MaxUploadMB:         getEnvInt("MAX_UPLOAD_MB", 20),
		UploadRatePerMinute: getEnvInt("UPLOAD_RATE_PER_MINUTE", 20),
		TrustedProxies:      getEnvList("TRUSTED_PROXIES"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SessionTTL: getEnvDuration("SESSION_TTL", 2*time.Hour),
		SessionMax: getEnvInt("SESSION_MAX", 200),

		AuditBackend:   getEnv("AUDIT_BACKEND", AuditNone),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/corpdash.db"),
		AuditRetention: getEnvDuration("AUDIT_RETENTION", 30*24*time.Hour),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "corpdash"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "upload.processed"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "corpdash.audit"),
	}
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.MaxUploadMB < 1 || c.MaxUploadMB > 512 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %dMB: must be between 1 and 512", c.MaxUploadMB))
	}
	if c.UploadRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid upload rate %d: must be at least 1 per minute", c.UploadRatePerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
	}

	switch c.AuditBackend {
	case AuditNone:
	case AuditSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite audit backend")
		}
		if c.AuditRetention < time.Hour {
			errors = append(errors, fmt.Sprintf("invalid audit retention %v: must be at least 1 hour", c.AuditRetention))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid audit backend '%s': must be one of [%s %s]", c.AuditBackend, AuditNone, AuditSQLite))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the audit worker needs on top of
// Validate: a broker to consume from and a database to write to.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required by the audit worker")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty")
	}
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path is required by the audit worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
