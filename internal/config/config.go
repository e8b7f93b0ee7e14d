package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Database DatabaseConfig
	RedisURL string

	Session   SessionConfig
	MagicLink MagicLinkConfig

	PublicBaseURL      string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	Timezone           string

	Email   EmailConfig
	Kafka   KafkaConfig
	Casdoor CasdoorConfig
}

type DatabaseConfig struct {
	URL             string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SessionConfig struct {
	Secret   string
	Name     string
	MaxAge   int // seconds
	Secure   bool
	SameSite string
}

type MagicLinkConfig struct {
	Secret string
	TTL    time.Duration
}

type EmailConfig struct {
	ResendAPIKey      string
	ResendBaseURL     string
	From              string
	NotificationEmail string
	WhatsAppNumber    string
	Timeout           time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.ClientID != "" && c.Cert != ""
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	// .env is optional; real environments inject variables directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		RedisURL: getEnv("REDIS_URL", ""),

		Session: SessionConfig{
			Secret:   getEnv("SESSION_SECRET", ""),
			Name:     getEnv("SESSION_NAME", "amqms_session"),
			MaxAge:   getEnvInt("SESSION_MAX_AGE", 7*24*3600),
			SameSite: getEnv("SESSION_SAME_SITE", "lax"),
		},
		MagicLink: MagicLinkConfig{
			Secret: getEnv("MAGIC_LINK_SECRET", ""),
			TTL:    getEnvDuration("MAGIC_LINK_TTL", 15*time.Minute),
		},

		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		Timezone:           getEnv("TIMEZONE", "Africa/Kampala"),

		Email: EmailConfig{
			ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
			ResendBaseURL:     getEnv("RESEND_BASE_URL", "https://api.resend.com"),
			From:              getEnv("EMAIL_FROM", "onboarding@resend.dev"),
			NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
			WhatsAppNumber:    getEnv("WHATSAPP_NUMBER", "256707068533"),
			Timeout:           getEnvDuration("EMAIL_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", nil),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "amqms-notifications"),
		},
		Casdoor: CasdoorConfig{
			Endpoint:     getEnv("CASDOOR_ENDPOINT", ""),
			ClientID:     getEnv("CASDOOR_CLIENT_ID", ""),
			ClientSecret: getEnv("CASDOOR_CLIENT_SECRET", ""),
			Cert:         getEnv("CASDOOR_CERT", ""),
			Organization: getEnv("CASDOOR_ORGANIZATION", ""),
			Application:  getEnv("CASDOOR_APPLICATION", ""),
		},
	}
	cfg.Session.Secure = getEnvBool("SESSION_SECURE", cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if len(c.Session.Secret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in production")
		}
		if len(c.MagicLink.Secret) < 32 {
			return fmt.Errorf("MAGIC_LINK_SECRET must be at least 32 bytes in production")
		}
		if c.Email.NotificationEmail == "" {
			return fmt.Errorf("NOTIFICATION_EMAIL is required in production")
		}
	}
	if c.Session.Secret == "" {
		c.Session.Secret = "development-session-secret-change-me!!"
	}
	if c.MagicLink.Secret == "" {
		c.MagicLink.Secret = "development-magic-link-secret-change-me"
	}
	if c.MagicLink.TTL <= 0 {
		return fmt.Errorf("MAGIC_LINK_TTL must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
