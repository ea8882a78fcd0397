package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	StoreAPI       StoreAPIConfig
	Payment        PaymentConfig
	CartStore      CartStoreConfig
	Redis          RedisConfig
	Database       DatabaseConfig
	Reconcile      ReconcileConfig
	Session        SessionConfig
	Location       LocationConfig
	Registration   RegistrationConfig
	CatalogPath    string
	TracingEnabled bool
}

type StoreAPIConfig struct {
	BaseURL      string
	OrderTimeout time.Duration
}

type PaymentConfig struct {
	KeyID        string
	KeySecret    string
	APIURL       string
	MerchantName string
	Description  string
	ThemeColor   string
	WaitTimeout  time.Duration
}

// Enabled reports whether online payment can be offered
func (p PaymentConfig) Enabled() bool {
	return p.KeyID != "" && p.KeySecret != ""
}

type CartStoreConfig struct {
	Driver string
	TTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* settings
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type ReconcileConfig struct {
	Store       string
	Interval    time.Duration
	MaxAttempts int
}

type SessionConfig struct {
	IdleTimeout time.Duration
}

type LocationConfig struct {
	BaseURL string
	APIKey  string
}

type RegistrationConfig struct {
	Password           string
	NotifyDefaultEmail string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ORDER_API_TIMEOUT", "15s")
	viper.SetDefault("CART_STORE", "memory")
	viper.SetDefault("RECONCILE_STORE", "memory")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	orderTimeout, err := getDurationOrViper("ORDER_API_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	paymentWait, err := getDurationOrViper("PAYMENT_WAIT_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	cartTTL, err := getDurationOrViper("CART_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	reconcileInterval, err := getDurationOrViper("RECONCILE_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	sessionIdle, err := getDurationOrViper("SESSION_IDLE_TIMEOUT", 2*time.Hour)
	if err != nil {
		return nil, err
	}
	redisDB, err := getIntOrViper("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := getIntOrViper("RECONCILE_MAX_ATTEMPTS", 20)
	if err != nil {
		return nil, err
	}
	tracing, err := getBoolOrViper("TRACING_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		StoreAPI: StoreAPIConfig{
			BaseURL:      getEnvOrViper("STORE_API_BASE_URL", ""),
			OrderTimeout: orderTimeout,
		},
		Payment: PaymentConfig{
			KeyID:        getEnvOrViper("RAZORPAY_KEY_ID", ""),
			KeySecret:    getEnvOrViper("RAZORPAY_KEY_SECRET", ""),
			APIURL:       getEnvOrViper("RAZORPAY_API_URL", "https://api.razorpay.com"),
			MerchantName: getEnvOrViper("MERCHANT_NAME", "GRCSPL"),
			Description:  getEnvOrViper("PAYMENT_DESCRIPTION", "Order Payment"),
			ThemeColor:   getEnvOrViper("PAYMENT_THEME_COLOR", "#39b54b"),
			WaitTimeout:  paymentWait,
		},
		CartStore: CartStoreConfig{
			Driver: getEnvOrViper("CART_STORE", "memory"),
			TTL:    cartTTL,
		},
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Database: DatabaseConfig{
			URL:      getEnvOrViper("DATABASE_URL", ""),
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "storefront"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Reconcile: ReconcileConfig{
			Store:       getEnvOrViper("RECONCILE_STORE", "memory"),
			Interval:    reconcileInterval,
			MaxAttempts: maxAttempts,
		},
		Session: SessionConfig{
			IdleTimeout: sessionIdle,
		},
		Location: LocationConfig{
			BaseURL: getEnvOrViper("LOCATION_API_URL", "https://geocode.maps.co"),
			APIKey:  getEnvOrViper("LOCATION_API_KEY", ""),
		},
		Registration: RegistrationConfig{
			Password:           getEnvOrViper("REGISTRATION_PASSWORD", "User@123"),
			NotifyDefaultEmail: getEnvOrViper("NOTIFY_DEFAULT_EMAIL", "info@grcspl.com"),
		},
		CatalogPath:    getEnvOrViper("CATALOG_PATH", ""),
		TracingEnabled: tracing,
	}

	// Validate required fields
	if cfg.StoreAPI.BaseURL == "" {
		return nil, fmt.Errorf("STORE_API_BASE_URL is required")
	}
	switch cfg.CartStore.Driver {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("CART_STORE must be memory or redis, got %q", cfg.CartStore.Driver)
	}
	switch cfg.Reconcile.Store {
	case "memory", "postgres":
	default:
		return nil, fmt.Errorf("RECONCILE_STORE must be memory or postgres, got %q", cfg.Reconcile.Store)
	}
	if cfg.StoreAPI.OrderTimeout <= 0 {
		return nil, fmt.Errorf("ORDER_API_TIMEOUT must be positive")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getDurationOrViper(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntOrViper(key string, defaultValue int) (int, error) {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBoolOrViper(key string, defaultValue bool) (bool, error) {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
