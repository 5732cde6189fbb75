package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	domainconfig "tutormatch-backend/domain/config"
)

// Persistence driver names accepted by PERSISTENCE_DRIVER
const (
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Persistence
	PersistenceDriver string
	PostgresDSN       string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// WebSocket configuration
	WebSocketEndpoint string
	ConnectionsTable  string

	// Outbox relay
	OutboxBatchSize   int
	OutboxInterval    time.Duration
	OutboxMaxAttempts int

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool

	// Business rules
	Policy *domainconfig.PolicyConfig
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		PersistenceDriver: getEnv("PERSISTENCE_DRIVER", DriverMemory),
		PostgresDSN:       getEnv("POSTGRES_DSN", ""),

		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "tutormatch")),
		EventBusName:  getEnv("EVENT_BUS_NAME", "tutormatch-events"),

		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),
		ConnectionsTable:  getEnv("CONNECTIONS_TABLE", "tutormatch-connections"),

		OutboxBatchSize:   getEnvInt("OUTBOX_BATCH_SIZE", 50),
		OutboxInterval:    getEnvDuration("OUTBOX_INTERVAL", 5*time.Second),
		OutboxMaxAttempts: getEnvInt("OUTBOX_MAX_ATTEMPTS", 3),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "tutormatch-backend"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		Policy: loadPolicy(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// loadPolicy starts from the domain defaults and applies env overrides
func loadPolicy() *domainconfig.PolicyConfig {
	policy := domainconfig.DefaultPolicyConfig()

	policy.RoleUpgradeMinAccountAgeDays = getEnvInt("ROLE_UPGRADE_MIN_ACCOUNT_AGE_DAYS", policy.RoleUpgradeMinAccountAgeDays)
	policy.MaxFailedLoginAttempts = getEnvInt("MAX_FAILED_LOGIN_ATTEMPTS", policy.MaxFailedLoginAttempts)
	policy.MaxOpenRequestsPerStudent = getEnvInt("MAX_OPEN_REQUESTS_PER_STUDENT", policy.MaxOpenRequestsPerStudent)
	policy.RequestTTL = getEnvDuration("REQUEST_TTL", policy.RequestTTL)

	return policy
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.PersistenceDriver {
	case DriverMemory, DriverDynamoDB, DriverPostgres:
	default:
		return fmt.Errorf("unknown PERSISTENCE_DRIVER %q", c.PersistenceDriver)
	}

	if c.PersistenceDriver == DriverPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required with the postgres driver")
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.PersistenceDriver == DriverMemory {
			return fmt.Errorf("the memory driver is not allowed in production")
		}
		if c.PersistenceDriver == DriverDynamoDB && c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
