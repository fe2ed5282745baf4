package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port            string
	LogLevel        string
	TrustedProxies  []string
	RateLimitPerMin int

	// Sessions
	LedgerBackend string
	SessionTTL    time.Duration
	MaxSessions   int
	SessionCookie string
	// SessionStartsPerMin caps new sessions per client address.
	SessionStartsPerMin int

	// Form
	MaxPhotoBytes int64
	DateLayout    string

	// AMQP event feed, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sheets export. The google target is disabled when GoogleSpreadsheetID
	// is empty; the memory target keeps rows in process.
	SheetsTarget             string
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		TrustedProxies:  getEnvList("TRUSTED_PROXIES"),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LedgerBackend: getEnv("LEDGER_BACKEND", "memory"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 12*time.Hour),
		MaxSessions:   getEnvInt("MAX_SESSIONS", 1000),
		SessionCookie: getEnv("SESSION_COOKIE", "keuangan_session"),

		SessionStartsPerMin: getEnvInt("SESSION_STARTS_PER_MINUTE", 10),

		MaxPhotoBytes: int64(getEnvInt("MAX_PHOTO_BYTES", 5<<20)),
		DateLayout:    getEnv("DATE_LAYOUT", "1/2/2006"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "keuangan"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transactions"),

		SheetsTarget:             getEnv("SHEETS_TARGET", "google"),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
	}
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.SheetsTarget == "memory" || c.GoogleSpreadsheetID != ""
}

// FeedEnabled reports whether transaction events should be published.
func (c *Config) FeedEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.LedgerBackend != "memory" && c.LedgerBackend != "sqlite" {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of [memory sqlite]", c.LedgerBackend))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}
	if strings.TrimSpace(c.SessionCookie) == "" || strings.ContainsAny(c.SessionCookie, " ;,=") {
		errors = append(errors, fmt.Sprintf("invalid session cookie name '%s'", c.SessionCookie))
	}

	if c.MaxPhotoBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max photo size %d: must be at least 1024 bytes", c.MaxPhotoBytes))
	}
	if strings.TrimSpace(c.DateLayout) == "" {
		errors = append(errors, "date layout cannot be empty")
	}
	if c.SessionStartsPerMin < 1 {
		errors = append(errors, fmt.Sprintf("invalid session start limit %d: must be at least 1 per minute", c.SessionStartsPerMin))
	}
	if c.RateLimitPerMin < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMin))
	}

	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be an IP or CIDR", p))
			}
		}
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.SheetsTarget {
	case "google", "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid sheets target '%s': must be one of [google memory]", c.SheetsTarget))
	}

	if c.SheetsTarget == "google" && c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
