package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Textgen      TextgenConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables the policy cache.
type RedisConfig struct {
	Addr                  string
	Password              string
	DB                    int
	PolicyCacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines how bearer tokens from the identity provider are verified.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
}

// SLAConfig controls policy bootstrap.
type SLAConfig struct {
	SeedDefaultPolicies bool
}

// TextgenConfig selects the suggestion text generator. An empty Provider
// disables suggestions.
type TextgenConfig struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	provider := strings.ToLower(strings.TrimSpace(os.Getenv("TEXTGEN_PROVIDER")))
	switch provider {
	case "", "ollama", "openai", "anthropic":
	default:
		return nil, fmt.Errorf("invalid TEXTGEN_PROVIDER %q", provider)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:                  os.Getenv("REDIS_ADDR"),
			Password:              os.Getenv("REDIS_PASSWORD"),
			DB:                    redisDB,
			PolicyCacheTTLSeconds: getEnvAsInt("POLICY_CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                os.Getenv("AUTH_JWT_ISSUER"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			SeedDefaultPolicies: getEnvAsBool("SLA_SEED_DEFAULT_POLICIES", true),
		},
		Textgen: TextgenConfig{
			Provider:       provider,
			BaseURL:        os.Getenv("TEXTGEN_BASE_URL"),
			APIKey:         os.Getenv("TEXTGEN_API_KEY"),
			Model:          os.Getenv("TEXTGEN_MODEL"),
			TimeoutSeconds: getEnvAsInt("TEXTGEN_TIMEOUT_SECONDS", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PolicyCacheTTL returns how long cached active policies live.
func (r RedisConfig) PolicyCacheTTL() time.Duration {
	if r.PolicyCacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.PolicyCacheTTLSeconds) * time.Second
}

// Timeout returns the generator HTTP timeout.
func (t TextgenConfig) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Enabled reports whether a generator provider is configured.
func (t TextgenConfig) Enabled() bool {
	return t.Provider != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
