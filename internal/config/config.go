package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Converge ConvergeConfig
	Checkout CheckoutConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
}

// DatabaseConfig holds PostgreSQL configuration. The database is optional:
// with no host configured the gateway keeps tokens in memory.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// Enabled reports whether a database was configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// ConvergeConfig holds Converge processor configuration. Credentials are not
// here; they come from the secrets backend.
type ConvergeConfig struct {
	Environment   string // "production" or "demo"
	MerchantEmail string // optional receipt copy address
	MaxRetries    int
}

// CheckoutConfig holds checkout flow policy
type CheckoutConfig struct {
	ChargePolicy      string // "charge" or "authorize"
	AllowTestAmounts  bool   // never honored in production
	DiagnosticLogging bool   // accept browser-side diagnostic log posts
	NonceTTLSeconds   int
	WidgetWaitSeconds int
}

// SecretsConfig selects the secret backend for the credential triple
type SecretsConfig struct {
	Backend string // "env", "aws", or "vault"

	// AWS Secrets Manager
	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	// Vault
	VaultAddress    string
	VaultToken      string
	VaultAuthMethod string
	VaultRoleID     string
	VaultSecretID   string
	VaultMountPath  string
	VaultNamespace  string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "converge_gateway"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Converge: ConvergeConfig{
			Environment:   getEnv("CONVERGE_ENVIRONMENT", "demo"),
			MerchantEmail: getEnv("CONVERGE_MERCHANT_EMAIL", ""),
			MaxRetries:    getEnvAsInt("CONVERGE_MAX_RETRIES", 2),
		},
		Checkout: CheckoutConfig{
			ChargePolicy:      getEnv("CHECKOUT_CHARGE_POLICY", "charge"),
			AllowTestAmounts:  getEnvAsBool("CHECKOUT_ALLOW_TEST_AMOUNTS", false),
			DiagnosticLogging: getEnvAsBool("CHECKOUT_DIAGNOSTIC_LOGGING", false),
			NonceTTLSeconds:   getEnvAsInt("CHECKOUT_NONCE_TTL_SECONDS", 900),
			WidgetWaitSeconds: getEnvAsInt("CHECKOUT_WIDGET_WAIT_SECONDS", 600),
		},
		Secrets: SecretsConfig{
			Backend:         getEnv("SECRETS_BACKEND", "env"),
			AWSRegion:       getEnv("SECRETS_AWS_REGION", "us-east-1"),
			AWSProfile:      getEnv("SECRETS_AWS_PROFILE", ""),
			AWSEndpoint:     getEnv("SECRETS_AWS_ENDPOINT", ""),
			VaultAddress:    getEnv("SECRETS_VAULT_ADDRESS", ""),
			VaultToken:      getEnv("SECRETS_VAULT_TOKEN", ""),
			VaultAuthMethod: getEnv("SECRETS_VAULT_AUTH_METHOD", "token"),
			VaultRoleID:     getEnv("SECRETS_VAULT_ROLE_ID", ""),
			VaultSecretID:   getEnv("SECRETS_VAULT_SECRET_ID", ""),
			VaultMountPath:  getEnv("SECRETS_VAULT_MOUNT_PATH", "secret"),
			VaultNamespace:  getEnv("SECRETS_VAULT_NAMESPACE", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate
	if cfg.Converge.Environment != "production" && cfg.Converge.Environment != "demo" {
		return nil, fmt.Errorf("CONVERGE_ENVIRONMENT must be \"production\" or \"demo\"")
	}
	if cfg.Checkout.ChargePolicy != "charge" && cfg.Checkout.ChargePolicy != "authorize" {
		return nil, fmt.Errorf("CHECKOUT_CHARGE_POLICY must be \"charge\" or \"authorize\"")
	}
	if cfg.Converge.Environment == "production" && cfg.Checkout.AllowTestAmounts {
		return nil, fmt.Errorf("CHECKOUT_ALLOW_TEST_AMOUNTS cannot be enabled in production")
	}
	if cfg.Database.Enabled() && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when DB_HOST is set")
	}
	switch cfg.Secrets.Backend {
	case "env", "aws":
	case "vault":
		if cfg.Secrets.VaultAddress == "" {
			return nil, fmt.Errorf("SECRETS_VAULT_ADDRESS is required for the vault backend")
		}
	default:
		return nil, fmt.Errorf("SECRETS_BACKEND must be \"env\", \"aws\", or \"vault\"")
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
