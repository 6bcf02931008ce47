// Package config loads the service configuration from the environment.
// A .env file is read first when present, then the process environment
// is mapped onto Config with envconfig.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        string `envconfig:"PORT" default:"3000"`
	Env         string `envconfig:"ENV" default:"development"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`

	// Database
	DBHost            string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort            int           `envconfig:"DB_PORT" default:"5432"`
	DBUser            string        `envconfig:"DB_USER" default:"postgres"`
	DBPassword        string        `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName            string        `envconfig:"DB_NAME" default:"tekpay"`
	DBSSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	DBConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"30m"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Auth
	JWTSecret     string `envconfig:"JWT_SECRET" default:"tekpay"`
	RefreshSecret string `envconfig:"REFRESH_SECRET" default:"tekpay-refresh"`

	// Providers
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	VTpassBaseURL   string `envconfig:"VT_PASS_BASE_URL" default:"https://vtpass.com/api"`
	VTpassAPIKey    string `envconfig:"VT_PASS_API_KEY"`
	VTpassSecretKey string `envconfig:"VT_PASS_SECRET_KEY"`
	VTpassPublicKey string `envconfig:"VT_PASS_PUBLIC_KEY"`

	FlutterwaveBaseURL     string `envconfig:"FLUTTERWAVE_BASE_URL" default:"https://api.flutterwave.com"`
	FlutterwaveSecretKey   string `envconfig:"FLUTTERWAVE_SECRET_KEY"`
	FlutterwaveWebhookHash string `envconfig:"FLUTTERWAVE_WEBHOOK_HASH"`

	MonnifyBaseURL      string `envconfig:"MONNIFY_BASE_URL" default:"https://sandbox.monnify.com"`
	MonnifyAPIKey       string `envconfig:"MONNIFY_API_KEY"`
	MonnifySecretKey    string `envconfig:"MONNIFY_SECRET_KEY"`
	MonnifyContractCode string `envconfig:"MONNIFY_CONTRACT_CODE"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	FCMProjectID   string `envconfig:"FCM_PROJECT_ID"`
	FCMAccessToken string `envconfig:"FCM_ACCESS_TOKEN"`

	// Events
	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"tekpay.transactions"`

	// Jobs
	SweepSchedule string        `envconfig:"SWEEP_SCHEDULE" default:"@every 5m"`
	SweepMinAge   time.Duration `envconfig:"SWEEP_MIN_AGE" default:"2m"`
	SweepBatch    int           `envconfig:"SWEEP_BATCH" default:"50"`
	Timezone      string        `envconfig:"APP_TIMEZONE" default:"Africa/Lagos"`

	// Business rules
	ReferralBonus float64 `envconfig:"REFERRAL_BONUS" default:"10"`
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the environment into a validated Config.
func Load() (*Config, error) {
	LoadEnv()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		return errors.New("invalid DB_MAX_IDLE_CONNS/DB_MAX_OPEN_CONNS")
	}
	if c.ProviderTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be > 0")
	}
	if c.SweepBatch <= 0 {
		return errors.New("SWEEP_BATCH must be > 0")
	}
	if c.ReferralBonus < 0 {
		return errors.New("REFERRAL_BONUS must not be negative")
	}
	if c.IsProduction() && c.JWTSecret == "tekpay" {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// KafkaBrokerList splits KAFKA_BROKERS on commas. Empty means events are disabled.
func (c *Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
