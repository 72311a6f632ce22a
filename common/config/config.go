package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service      ServiceConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Queue        QueueConfig
	Telemetry    TelemetryConfig
	Features     FeatureFlags
	LLM          LLMConfig
	Registry     RegistryConfig
	Orchestrator OrchestratorConfig
	Webhook      WebhookConfig
	Redis        RedisConfig
}

// RedisConfig configures the rate limiter, memory-store cache, and
// breaker-adjacent connection pool shared across services.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LLMConfig selects and configures the LLM provider the Node Executor calls.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float64
	MaxRetries  int
	BaseDelay   time.Duration
}

// RegistryConfig configures the Deployment Registry Service and its sweeper.
type RegistryConfig struct {
	SweepInterval    time.Duration
	RequestTimeout   time.Duration
	DefaultTTL       time.Duration
	HeartbeatInterval time.Duration
}

// OrchestratorConfig configures the Orchestrator Service's connection pool
// and fan-out execution.
type OrchestratorConfig struct {
	RegistryURL            string
	MaxParallelExecutions  int
	ExecutionTimeout       time.Duration
	HealthCheckInterval    time.Duration
	BreakerFailureThreshold uint32
	ActiveCutoff           time.Duration
}

// WebhookConfig configures the generic ingress: signature verification and
// rate limiting.
type WebhookConfig struct {
	SigningSecret     string
	RequireSignature  bool
	RateLimitPerMin   int
	SlackSigningSecret string
	SlackBotToken      string
	ConfigDir          string
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	MaxConns     int
	MinConns     int
	MaxIdleTime  time.Duration
	MaxLifetime  time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool
	SizeMB     int
	DefaultTTL time.Duration
}

// QueueConfig holds message queue settings
type QueueConfig struct {
	Type      string // "memory" for MVP, "kafka" for production
	Brokers   []string
	BatchSize int
	LingerMS  int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof    bool
	PprofPort      int
	EnableTracing  bool
	EnableMetrics  bool
	MetricsPort    int
	TracingBackend string
}

// FeatureFlags for MVP toggles
type FeatureFlags struct {
	EnableKafka            bool
	EnableK8sRunner        bool
	EnableWASMOptimizer    bool
	EnableDistributedCache bool
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "orchestrator"),
			User:        getEnv("POSTGRES_USER", "orchestrator"),
			Password:    getEnv("POSTGRES_PASSWORD", "orchestrator"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			SizeMB:     getEnvInt("CACHE_SIZE_MB", 512),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Queue: QueueConfig{
			Type:      getEnv("QUEUE_TYPE", "memory"),
			Brokers:   getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			BatchSize: getEnvInt("KAFKA_BATCH_SIZE", 1000),
			LingerMS:  getEnvInt("KAFKA_LINGER_MS", 10),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:    getEnvBool("ENABLE_PPROF", true),
			PprofPort:      getEnvInt("PPROF_PORT", 6060),
			EnableTracing:  getEnvBool("ENABLE_TRACING", true),
			EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
			MetricsPort:    getEnvInt("METRICS_PORT", 9090),
			TracingBackend: getEnv("TRACING_BACKEND", "stdout"),
		},
		Features: FeatureFlags{
			EnableKafka:            getEnvBool("ENABLE_KAFKA", false),
			EnableK8sRunner:        getEnvBool("ENABLE_K8S_RUNNER", false),
			EnableWASMOptimizer:    getEnvBool("ENABLE_WASM_OPTIMIZER", false),
			EnableDistributedCache: getEnvBool("ENABLE_DISTRIBUTED_CACHE", false),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "stub"),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.0),
			MaxRetries:  getEnvInt("LLM_MAX_RETRIES", 3),
			BaseDelay:   getEnvDuration("LLM_BASE_DELAY", 200*time.Millisecond),
		},
		Registry: RegistryConfig{
			SweepInterval:     getEnvDuration("REGISTRY_SWEEP_INTERVAL", 60*time.Second),
			RequestTimeout:    getEnvDuration("REGISTRY_REQUEST_TIMEOUT", 10*time.Second),
			DefaultTTL:        getEnvDuration("REGISTRY_DEFAULT_TTL", 30*time.Second),
			HeartbeatInterval: getEnvDuration("REGISTRY_HEARTBEAT_INTERVAL", 10*time.Second),
		},
		Orchestrator: OrchestratorConfig{
			RegistryURL:             getEnv("ORCHESTRATOR_REGISTRY_URL", "http://localhost:8080"),
			MaxParallelExecutions:   getEnvInt("ORCHESTRATOR_MAX_PARALLEL", 10),
			ExecutionTimeout:        getEnvDuration("ORCHESTRATOR_EXECUTION_TIMEOUT", 30*time.Second),
			HealthCheckInterval:     getEnvDuration("ORCHESTRATOR_HEALTH_CHECK_INTERVAL", 15*time.Second),
			BreakerFailureThreshold: uint32(getEnvInt("ORCHESTRATOR_BREAKER_FAILURE_THRESHOLD", 5)),
			ActiveCutoff:            getEnvDuration("ORCHESTRATOR_ACTIVE_CUTOFF", 60*time.Second),
		},
		Webhook: WebhookConfig{
			SigningSecret:      getEnv("WEBHOOK_SIGNING_SECRET", ""),
			RequireSignature:   getEnvBool("WEBHOOK_REQUIRE_SIGNATURE", true),
			RateLimitPerMin:    getEnvInt("WEBHOOK_RATE_LIMIT_PER_MIN", 120),
			SlackSigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
			SlackBotToken:      getEnv("SLACK_BOT_TOKEN", ""),
			ConfigDir:          getEnv("WEBHOOK_CONFIG_DIR", "./workflows"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		// Simple comma-separated parsing
		// For production, use a proper CSV parser
		return strings.Split(value, ",")
	}
	return defaultValue
}