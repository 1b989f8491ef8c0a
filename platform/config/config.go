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

// StoreConfig selects the persistence backend for leads and buyers.
type StoreConfig interface {
	GetStoreBackend() string
	UsesMemoryStore() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetPublicRatePerMinute() int
}

// RedisConfig provides Redis connection settings shared by the geocode cache
// and the task queue.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// GeocodingConfig provides settings for address resolution.
type GeocodingConfig interface {
	GetNominatimURL() string
	GetGeocodeUserAgent() string
	GetGeocodeCountryCodes() string
	GetGeocodeTimeout() time.Duration
	GetGeocodeFallbackMiles() float64
	GetGeocodeCacheTTL() time.Duration
	GetGeocodeRatePerSecond() float64
}

// DistributionConfig provides the buyer selection policy.
type DistributionConfig interface {
	GetDistributionMode() string
	GetDistributionSharedLimit() int
	GetDistributionMaxAttempts() int
}

// PricingConfig provides the location of the tier table.
type PricingConfig interface {
	GetTierConfigPath() string
}

// EmailConfig provides settings for buyer delivery e-mails.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// MaintenanceConfig provides schedules for the lead maintenance jobs.
type MaintenanceConfig interface {
	GetLeadExpiryAfter() time.Duration
	GetLeadExpirySchedule() string
	GetUnmatchedRetrySchedule() string
	GetUnmatchedRetryBatch() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	StoreBackend            string
	DatabaseURL             string
	CORSAllowAll            bool
	CORSOrigins             []string
	PublicRatePerMinute     int
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	NominatimURL            string
	GeocodeUserAgent        string
	GeocodeCountryCodes     string
	GeocodeTimeout          time.Duration
	GeocodeFallbackMiles    float64
	GeocodeCacheTTL         time.Duration
	GeocodeRatePerSecond    float64
	DistributionMode        string
	DistributionSharedLimit int
	DistributionMaxAttempts int
	TierConfigPath          string
	EmailEnabled            bool
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromName           string
	EmailFromAddress        string
	LeadExpiryAfter         time.Duration
	LeadExpirySchedule      string
	UnmatchedRetrySchedule  string
	UnmatchedRetryBatch     int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// StoreConfig implementation
func (c *Config) GetStoreBackend() string { return c.StoreBackend }
func (c *Config) UsesMemoryStore() bool   { return c.StoreBackend == "memory" }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string         { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool       { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string    { return c.CORSOrigins }
func (c *Config) GetPublicRatePerMinute() int { return c.PublicRatePerMinute }

// RedisConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// GeocodingConfig implementation
func (c *Config) GetNominatimURL() string           { return c.NominatimURL }
func (c *Config) GetGeocodeUserAgent() string       { return c.GeocodeUserAgent }
func (c *Config) GetGeocodeCountryCodes() string    { return c.GeocodeCountryCodes }
func (c *Config) GetGeocodeTimeout() time.Duration  { return c.GeocodeTimeout }
func (c *Config) GetGeocodeFallbackMiles() float64  { return c.GeocodeFallbackMiles }
func (c *Config) GetGeocodeCacheTTL() time.Duration { return c.GeocodeCacheTTL }
func (c *Config) GetGeocodeRatePerSecond() float64  { return c.GeocodeRatePerSecond }

// DistributionConfig implementation
func (c *Config) GetDistributionMode() string     { return c.DistributionMode }
func (c *Config) GetDistributionSharedLimit() int { return c.DistributionSharedLimit }
func (c *Config) GetDistributionMaxAttempts() int { return c.DistributionMaxAttempts }

// PricingConfig implementation
func (c *Config) GetTierConfigPath() string { return c.TierConfigPath }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// MaintenanceConfig implementation
func (c *Config) GetLeadExpiryAfter() time.Duration { return c.LeadExpiryAfter }
func (c *Config) GetLeadExpirySchedule() string     { return c.LeadExpirySchedule }
func (c *Config) GetUnmatchedRetrySchedule() string { return c.UnmatchedRetrySchedule }
func (c *Config) GetUnmatchedRetryBatch() int       { return c.UnmatchedRetryBatch }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		StoreBackend:            strings.ToLower(getEnv("STORE_BACKEND", "postgres")),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		PublicRatePerMinute:     mustInt(getEnv("PUBLIC_RATE_PER_MIN", "30")),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		NominatimURL:            getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
		GeocodeUserAgent:        getEnv("GEOCODE_USER_AGENT", "LeadBroker/1.0"),
		GeocodeCountryCodes:     getEnv("GEOCODE_COUNTRY_CODES", "us"),
		GeocodeTimeout:          mustDuration(getEnv("GEOCODE_TIMEOUT", "5s")),
		GeocodeFallbackMiles:    mustFloat(getEnv("GEOCODE_FALLBACK_MILES", "9999")),
		GeocodeCacheTTL:         mustDuration(getEnv("GEOCODE_CACHE_TTL", "720h")),
		GeocodeRatePerSecond:    mustFloat(getEnv("GEOCODE_RATE_PER_SEC", "1")),
		DistributionMode:        strings.ToLower(getEnv("DISTRIBUTION_MODE", "shared")),
		DistributionSharedLimit: mustInt(getEnv("DISTRIBUTION_SHARED_LIMIT", "5")),
		DistributionMaxAttempts: mustInt(getEnv("DISTRIBUTION_MAX_ATTEMPTS", "10")),
		TierConfigPath:          getEnv("TIER_CONFIG_PATH", ""),
		EmailEnabled:            emailEnabled && smtpHost != "",
		SMTPHost:                smtpHost,
		SMTPPort:                mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Lead Broker"),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", ""),
		LeadExpiryAfter:         mustDuration(getEnv("LEAD_EXPIRY_AFTER", "168h")),
		LeadExpirySchedule:      getEnv("LEAD_EXPIRY_SCHEDULE", "@hourly"),
		UnmatchedRetrySchedule:  getEnv("UNMATCHED_RETRY_SCHEDULE", "@every 15m"),
		UnmatchedRetryBatch:     mustInt(getEnv("UNMATCHED_RETRY_BATCH", "50")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.StoreBackend)
	}
	if c.DistributionMode != "exclusive" && c.DistributionMode != "shared" {
		return fmt.Errorf("DISTRIBUTION_MODE must be exclusive or shared, got %q", c.DistributionMode)
	}
	if c.DistributionMode == "shared" && c.DistributionSharedLimit < 1 {
		return fmt.Errorf("DISTRIBUTION_SHARED_LIMIT must be at least 1")
	}
	if c.GeocodeTimeout <= 0 {
		return fmt.Errorf("GEOCODE_TIMEOUT must be a positive duration")
	}
	if c.GeocodeFallbackMiles <= 0 {
		return fmt.Errorf("GEOCODE_FALLBACK_MILES must be positive")
	}
	if c.EmailEnabled && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
