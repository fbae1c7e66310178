package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	Port        string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Pricing   PricingConfig
	Rates     RatesConfig
	Alerts    AlertsConfig
	SMTP      SMTPConfig
	Scheduler SchedulerConfig
	Bootstrap BootstrapConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a shared redis is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RateLimitConfig struct {
	Enabled     bool
	PublicRate  float64
	PublicBurst int
}

type PricingConfig struct {
	StoreCurrency    string
	PriceDecimals    int32
	DefaultLaborCost float64
	SettingsPath     string
}

type RatesConfig struct {
	VendorCurrency      string
	ExchangeBaseURL     string
	VendorTimeout       time.Duration
	ExchangeTimeout     time.Duration
	RateCacheTTL        time.Duration
	ExchangeCacheTTL    time.Duration
	RefreshLockTTL      time.Duration
	MaxConcurrentVendor int
}

type AlertsConfig struct {
	RetainOnDeliveryFailure bool
	DropRatio               float64
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SchedulerConfig struct {
	RunInterval             time.Duration
	RateRefreshInterval     time.Duration
	AlertEvaluationInterval time.Duration
	EnabledJobs             []string
}

type BootstrapConfig struct {
	AdminAPIKey  string
	SeedDefaults bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "karat"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		Port:         getenv("PORT", "8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "karat"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			PublicRate:  getenvFloat("RATE_LIMIT_PUBLIC_RATE", 5),
			PublicBurst: getenvInt("RATE_LIMIT_PUBLIC_BURST", 20),
		},
		Pricing: PricingConfig{
			StoreCurrency:    strings.ToUpper(getenv("STORE_CURRENCY", "USD")),
			PriceDecimals:    int32(getenvInt("PRICE_DECIMALS", 2)),
			DefaultLaborCost: getenvFloat("DEFAULT_LABOR_COST", 0),
			SettingsPath:     getenv("STORE_SETTINGS_PATH", ""),
		},
		Rates: RatesConfig{
			VendorCurrency:      strings.ToUpper(getenv("VENDOR_CURRENCY", "USD")),
			ExchangeBaseURL:     strings.TrimRight(getenv("EXCHANGE_RATE_BASE_URL", "https://api.exchangerate-api.com/v4"), "/"),
			VendorTimeout:       getenvDuration("VENDOR_FETCH_TIMEOUT", 15*time.Second),
			ExchangeTimeout:     getenvDuration("EXCHANGE_FETCH_TIMEOUT", 10*time.Second),
			RateCacheTTL:        getenvDuration("RATE_CACHE_TTL", 24*time.Hour),
			ExchangeCacheTTL:    getenvDuration("EXCHANGE_CACHE_TTL", time.Hour),
			RefreshLockTTL:      getenvDuration("RATE_REFRESH_LOCK_TTL", 2*time.Minute),
			MaxConcurrentVendor: getenvInt("VENDOR_FETCH_CONCURRENCY", 8),
		},
		Alerts: AlertsConfig{
			RetainOnDeliveryFailure: getenvBool("ALERT_RETAIN_ON_DELIVERY_FAILURE", false),
			DropRatio:               0.9,
		},
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			Port:     getenvInt("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "alerts@localhost"),
		},
		Scheduler: SchedulerConfig{
			RunInterval:             getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
			RateRefreshInterval:     getenvDuration("RATE_REFRESH_INTERVAL", 24*time.Hour),
			AlertEvaluationInterval: getenvDuration("ALERT_EVALUATION_INTERVAL", time.Hour),
			EnabledJobs:             getenvList("SCHEDULER_ENABLED_JOBS"),
		},
		Bootstrap: BootstrapConfig{
			AdminAPIKey:  strings.TrimSpace(getenv("ADMIN_API_KEY", "")),
			SeedDefaults: getenvBool("SEED_DEFAULTS", true),
		},
	}

	return cfg
}

// IsProduction reports whether the process runs in a production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
