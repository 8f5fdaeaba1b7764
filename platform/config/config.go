// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// RedisConfig provides settings for redis-backed components (jobs, pub/sub).
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
}

// WhatsAppConfig provides settings for the outbound WhatsApp client.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	GetWhatsAppWebhookToken() string
}

// ModelConfig provides settings for the model-invocation collaborator.
type ModelConfig interface {
	GetModelAPIKey() string
	GetModelBaseURL() string
	GetModelName() string
}

// CalendarConfig provides settings for the external calendar gateway.
type CalendarConfig interface {
	GetCalendarBaseURL() string
	GetCalendarOAuthClientID() string
	GetCalendarOAuthClientSecret() string
}

// MinIOConfig provides settings for MinIO S3-compatible attachment storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketAttachments() string
	IsMinIOEnabled() bool
}

// IngestConfig provides settings for inbound message ingestion.
type IngestConfig interface {
	GetSessionRateLimit() int
	GetSessionRateWindow() time.Duration
	GetAgentMaxSteps() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	AppBaseURL            string
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	WhatsAppURL           string
	WhatsAppKey           string
	WhatsAppDeviceID      string
	WhatsAppWebhookToken  string
	ModelAPIKey           string
	ModelBaseURL          string
	ModelName             string
	CalendarBaseURL       string
	CalendarOAuthClientID string
	CalendarOAuthSecret   string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIOMaxFileSize      int64
	MinioBucketAttachments string
	SessionRateLimit      int
	SessionRateWindow     time.Duration
	AgentMaxSteps         int
}

// Load reads configuration from environment variables.
// A .env file is loaded first when present (development convenience).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                   getEnv("ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTAccessSecret:       os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:          getBool("CORS_ALLOW_ALL", false),
		CORSOrigins:           getList("CORS_ORIGINS"),
		CORSAllowCreds:        getBool("CORS_ALLOW_CREDENTIALS", true),
		AppBaseURL:            getEnv("APP_BASE_URL", "http://localhost:8080"),
		EmailEnabled:          getBool("EMAIL_ENABLED", false),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              getInt("SMTP_PORT", 587),
		SMTPUsername:          os.Getenv("SMTP_USERNAME"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "ChatDesk"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", "no-reply@chatdesk.local"),
		RedisURL:              os.Getenv("REDIS_URL"),
		RedisTLSInsecure:      getBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		WhatsAppURL:           os.Getenv("WHATSAPP_URL"),
		WhatsAppKey:           os.Getenv("WHATSAPP_API_KEY"),
		WhatsAppDeviceID:      os.Getenv("WHATSAPP_DEVICE_ID"),
		WhatsAppWebhookToken:  os.Getenv("WHATSAPP_WEBHOOK_TOKEN"),
		ModelAPIKey:           os.Getenv("MOONSHOT_API_KEY"),
		ModelBaseURL:          os.Getenv("MODEL_BASE_URL"),
		ModelName:             getEnv("MODEL_NAME", "kimi-k2-turbo-preview"),
		CalendarBaseURL:       getEnv("CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3"),
		CalendarOAuthClientID: os.Getenv("CALENDAR_OAUTH_CLIENT_ID"),
		CalendarOAuthSecret:   os.Getenv("CALENDAR_OAUTH_CLIENT_SECRET"),
		MinIOEndpoint:         os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:        os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:        os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:           getBool("MINIO_USE_SSL", false),
		MinIOMaxFileSize:      getInt64("MINIO_MAX_FILE_SIZE", 10<<20),
		MinioBucketAttachments: getEnv("MINIO_BUCKET_ATTACHMENTS", "conversation-attachments"),
		SessionRateLimit:      getInt("SESSION_RATE_LIMIT", 30),
		SessionRateWindow:     getDuration("SESSION_RATE_WINDOW", time.Minute),
		AgentMaxSteps:         getInt("AGENT_MAX_STEPS", 5),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }

func (c *Config) GetWhatsAppURL() string          { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string          { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string     { return c.WhatsAppDeviceID }
func (c *Config) GetWhatsAppWebhookToken() string { return c.WhatsAppWebhookToken }

func (c *Config) GetModelAPIKey() string  { return c.ModelAPIKey }
func (c *Config) GetModelBaseURL() string { return c.ModelBaseURL }
func (c *Config) GetModelName() string    { return c.ModelName }

func (c *Config) GetCalendarBaseURL() string           { return c.CalendarBaseURL }
func (c *Config) GetCalendarOAuthClientID() string     { return c.CalendarOAuthClientID }
func (c *Config) GetCalendarOAuthClientSecret() string { return c.CalendarOAuthSecret }

func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64       { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketAttachments() string { return c.MinioBucketAttachments }
func (c *Config) IsMinIOEnabled() bool             { return c.MinIOEndpoint != "" }

func (c *Config) GetSessionRateLimit() int            { return c.SessionRateLimit }
func (c *Config) GetSessionRateWindow() time.Duration { return c.SessionRateWindow }
func (c *Config) GetAgentMaxSteps() int               { return c.AgentMaxSteps }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
