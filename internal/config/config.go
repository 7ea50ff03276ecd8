package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Development bool
	// API configuration
	APIPort     int
	AdminAPIKey string
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Payment provider configuration
	PaymentProviderURL string
	PaymentProviderKey string
	// KYC provider configuration
	KYCServiceURL string
	KYCCacheTTL   time.Duration

	// Platform defaults seeded into the settings row on first run.
	// Fee percent is canonical here; call sites always read it from the
	// settings row, never hard-code it.
	ActivationCostCents int64
	ContractFeeCents    int64
	PlatformFeePercent  int64
	TokenPriceCents     decimal.Decimal

	// Reconciliation configuration
	ReconcileInterval time.Duration

	// SMTP configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string
	OpsEmail     string

	// Telegram ops channel configuration
	TelegramBotToken  string
	TelegramOpsChatID string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:        getEnvAsBool("DEVELOPMENT", false),
		APIPort:            getEnvAsInt("API_PORT", 6710),
		AdminAPIKey:        getEnv("ADMIN_API_KEY", ""),
		PostgresUser:       getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:         getEnv("POSTGRES_DB", "custodia"),
		PaymentProviderURL: getEnv("PAYMENT_PROVIDER_URL", ""),
		PaymentProviderKey: getEnv("PAYMENT_PROVIDER_KEY", ""),
		KYCServiceURL:      getEnv("KYC_SERVICE_URL", ""),
		KYCCacheTTL:        getEnvAsDuration("KYC_CACHE_TTL", 5*time.Minute),

		ActivationCostCents: getEnvAsInt64("ACTIVATION_COST_CENTS", 3500),
		ContractFeeCents:    getEnvAsInt64("CONTRACT_FEE_CENTS", 500),
		PlatformFeePercent:  getEnvAsInt64("PLATFORM_FEE_PERCENT", 10),
		TokenPriceCents:     getEnvAsDecimal("TOKEN_PRICE_CENTS", decimal.NewFromInt(1)),

		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 1*time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.example.com"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPSender:   getEnv("SMTP_SENDER", ""),
		OpsEmail:     getEnv("OPS_EMAIL", ""),

		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramOpsChatID: getEnv("TELEGRAM_OPS_CHAT_ID", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.PaymentProviderURL == "" {
		return fmt.Errorf("PAYMENT_PROVIDER_URL is required")
	}

	if c.KYCServiceURL == "" {
		return fmt.Errorf("KYC_SERVICE_URL is required")
	}

	if c.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required")
	}

	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	if c.TokenPriceCents.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("TOKEN_PRICE_CENTS must be positive")
	}

	if c.PlatformFeePercent < 0 || c.PlatformFeePercent > 100 {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be between 0 and 100")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDecimal(name string, defaultValue decimal.Decimal) decimal.Decimal {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := decimal.NewFromString(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
