package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application. One instance is built
// at process start and passed into constructors; it is never mutated after.
type Config struct {
	Port        string
	DatabaseURL string
	Version     string
	LogLevel    string

	// Inbound webhook
	WebhookSecret string // shared secret checked on ?auth=

	// AI completion collaborator
	AIBaseURL        string // e.g. https://ai.internal/api/v1
	AITimeoutSeconds int

	// Outbound mail (Postmark)
	PostmarkServerToken string
	PostmarkAPIBaseURL  string // overridable for tests
	DefaultFromAddress  string // fallback sender when no primary address maps

	// Quota notifications (SendGrid)
	SendGridAPIKey    string
	NotifyFromAddress string
	NotifyFromName    string

	// Gmail polling path
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	GmailUserEmail    string
	PollEnabled       bool
	PollIntervalMins  int
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Version:     getEnv("VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		AIBaseURL:        os.Getenv("AI_BASE_URL"),
		AITimeoutSeconds: getEnvInt("AI_TIMEOUT", 60),

		PostmarkServerToken: os.Getenv("POSTMARK_SERVER_TOKEN"),
		PostmarkAPIBaseURL:  getEnv("POSTMARK_API_BASE_URL", "https://api.postmarkapp.com"),
		DefaultFromAddress:  getEnv("DEFAULT_FROM_ADDRESS", "noreply@leasedesk.example.com"),

		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		NotifyFromAddress: getEnv("NOTIFY_FROM_ADDRESS", "noreply@leasedesk.example.com"),
		NotifyFromName:    getEnv("NOTIFY_FROM_NAME", "Leasedesk"),

		GmailClientID:     os.Getenv("GMAIL_CLIENT_ID"),
		GmailClientSecret: os.Getenv("GMAIL_CLIENT_SECRET"),
		GmailRefreshToken: os.Getenv("GMAIL_REFRESH_TOKEN"),
		GmailUserEmail:    os.Getenv("GMAIL_USER_EMAIL"),
		PollEnabled:       getEnvBool("POLL_ENABLED", false),
		PollIntervalMins:  getEnvInt("POLL_INTERVAL_MINUTES", 15),
	}
}

// HasGmail reports whether the Gmail polling path is fully configured.
func (c *Config) HasGmail() bool {
	return c.GmailClientID != "" && c.GmailClientSecret != "" &&
		c.GmailRefreshToken != "" && c.GmailUserEmail != ""
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "leasedesk").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}
