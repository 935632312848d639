package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App        *AppConfig        `yaml:"app"`
	Logging    *LoggingConfig    `yaml:"logging"`
	Database   *DatabaseConfig   `yaml:"database"`
	Redis      *RedisConfig      `yaml:"redis"`
	WebSocket  *WebSocketConfig  `yaml:"websocket"`
	Security   *SecurityConfig   `yaml:"security"`
	Moderation *ModerationConfig `yaml:"moderation"`
}

type AppConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Environment     string        `yaml:"environment"`
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	Debug           bool          `yaml:"debug"`
	Timezone        string        `yaml:"timezone"`
	Currency        string        `yaml:"currency"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type SecurityConfig struct {
	JWTSecret          string   `yaml:"jwt_secret"`
	JWTIssuer          string   `yaml:"jwt_issuer"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	TrustedProxies     []string `yaml:"trusted_proxies"`
}

func Load() (*Config, error) {
	config := &Config{
		App:        loadAppConfig(),
		Logging:    loadLoggingConfig(),
		Database:   loadDatabaseConfig(),
		Redis:      loadRedisConfig(),
		WebSocket:  loadWebSocketConfig(),
		Security:   loadSecurityConfig(),
		Moderation: loadModerationConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("config: invalid APP_PORT %d", c.App.Port)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.App.Environment == "production" && c.Security.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	switch c.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.Database.Driver)
	}
	if c.Moderation.AuditRetryAttempts < 1 {
		return fmt.Errorf("config: AUDIT_RETRY_ATTEMPTS must be at least 1")
	}
	if c.Moderation.AuditRetryQueueSize < 1 {
		return fmt.Errorf("config: AUDIT_RETRY_QUEUE_SIZE must be at least 1")
	}
	return nil
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

const defaultJWTSecret = "change-me-offer-moderation-secret"

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:            getEnv("APP_NAME", "OfferModeration"),
		Version:         getEnv("APP_VERSION", "1.0.0"),
		Environment:     getEnv("APP_ENV", "development"),
		Port:            getEnvAsInt("APP_PORT", 8080),
		Host:            getEnv("APP_HOST", "0.0.0.0"),
		Debug:           getEnvAsBool("APP_DEBUG", true),
		Timezone:        getEnv("APP_TIMEZONE", "UTC"),
		Currency:        getEnv("APP_CURRENCY", "UZS"),
		ShutdownTimeout: getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func loadLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
		Output: getEnv("LOG_OUTPUT", "stdout"),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", defaultJWTSecret),
		JWTIssuer:          getEnv("JWT_ISSUER", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
