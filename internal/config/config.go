// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Email       EmailConfig
	Payment     PaymentConfig
	Storage     StorageConfig
	Catalog     CatalogConfig
	Site        SiteConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	GuestCartTTL int // in hours
}

type JWTConfig struct {
	SecretKey       string
	Issuer          string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
	ConfirmTokenTTL int // in hours
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// PaymentConfig carries every gateway credential explicitly. Debug mode
// lets unsigned gateway callbacks through and must be off in production.
// TrustRedirect settles an order from the buyer's success redirect alone,
// without waiting for the webhook.
type PaymentConfig struct {
	Debug         bool
	TrustRedirect bool
	TwoCheckout   TwoCheckoutConfig
	SSLCommerz    SSLCommerzConfig
}

type TwoCheckoutConfig struct {
	BuyLinkBase string
	SellerID    string
	SecretWord  string
}

type SSLCommerzConfig struct {
	StoreID       string
	StorePassword string
	Sandbox       bool
	InitURL       string
	// Conversion rates into BDT for the currencies the storefront sells in.
	RateUSD      decimal.Decimal
	RateEUR      decimal.Decimal
	RateGBP      decimal.Decimal
	MinAmountBDT decimal.Decimal
}

// Endpoint returns the gateway session endpoint, honoring an explicit
// override before falling back to the documented sandbox/live hosts.
func (c SSLCommerzConfig) Endpoint() string {
	if c.InitURL != "" {
		return c.InitURL
	}
	if c.Sandbox {
		return "https://sandbox.sslcommerz.com/gwprocess/v4/api.php"
	}
	return "https://securepay.sslcommerz.com/gwprocess/v4/api.php"
}

type StorageConfig struct {
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
	LocalDir           string
	MaxUploadMB        int64
}

type CatalogConfig struct {
	CategoriesEnabled bool
	PageSize          int
	MaxPageSize       int
}

type SiteConfig struct {
	Name         string
	BaseURL      string
	FrontendURL  string
	SupportEmail string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "gvoiceus"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			GuestCartTTL: getEnvAsInt("GUEST_CART_TTL_HOURS", 72),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Issuer:          getEnv("JWT_ISSUER", "gvoiceus"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
			ConfirmTokenTTL: getEnvAsInt("JWT_CONFIRM_TTL", 24),  // 24 hours
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@gvoice.us"),
			FromName:     getEnv("FROM_NAME", "GVoiceUS"),
		},
		Payment: PaymentConfig{
			Debug:         getEnvAsBool("PAYMENT_DEBUG", false),
			TrustRedirect: getEnvAsBool("PAYMENT_TRUST_REDIRECT", true),
			TwoCheckout: TwoCheckoutConfig{
				BuyLinkBase: getEnv("TCO_BUY_LINK_BASE", ""),
				SellerID:    getEnv("TCO_SELLER_ID", ""),
				SecretWord:  getEnv("TCO_SECRET_WORD", ""),
			},
			SSLCommerz: SSLCommerzConfig{
				StoreID:       getEnv("SSLCZ_STORE_ID", ""),
				StorePassword: getEnv("SSLCZ_STORE_PASSWORD", ""),
				Sandbox:       getEnvAsBool("SSLCZ_SANDBOX", true),
				InitURL:       getEnv("SSLCZ_INIT_URL", ""),
				RateUSD:       getEnvAsDecimal("SSLCZ_RATE_USD", "125"),
				RateEUR:       getEnvAsDecimal("SSLCZ_RATE_EUR", "130"),
				RateGBP:       getEnvAsDecimal("SSLCZ_RATE_GBP", "140"),
				MinAmountBDT:  getEnvAsDecimal("SSLCZ_MIN_AMOUNT_BDT", "10.00"),
			},
		},
		Storage: StorageConfig{
			AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:           getEnv("AWS_S3_BUCKET", "gvoiceus-order-files"),
			LocalDir:           getEnv("STORAGE_LOCAL_DIR", "./var/uploads"),
			MaxUploadMB:        int64(getEnvAsInt("STORAGE_MAX_UPLOAD_MB", 50)),
		},
		Catalog: CatalogConfig{
			CategoriesEnabled: getEnvAsBool("CATALOG_CATEGORIES_ENABLED", true),
			PageSize:          getEnvAsInt("CATALOG_PAGE_SIZE", 12),
			MaxPageSize:       getEnvAsInt("CATALOG_MAX_PAGE_SIZE", 60),
		},
		Site: SiteConfig{
			Name:         getEnv("SITE_NAME", "GVoiceUS"),
			BaseURL:      strings.TrimRight(getEnv("SITE_BASE_URL", "http://localhost:8080"), "/"),
			FrontendURL:  strings.TrimRight(getEnv("SITE_FRONTEND_URL", "http://localhost:3000"), "/"),
			SupportEmail: getEnv("SUPPORT_EMAIL", "support@gvoice.us"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWT.SecretKey == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT secret key must be changed in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required in production")
		}
		if c.Payment.Debug {
			return fmt.Errorf("PAYMENT_DEBUG must be off in production")
		}
	}

	if c.Payment.SSLCommerz.MinAmountBDT.IsNegative() {
		return fmt.Errorf("SSLCZ_MIN_AMOUNT_BDT must not be negative")
	}

	return nil
}

// Helper functions
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
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(defaultValue)
	return d
}
