package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	OTPModeRemote = "remote"
	OTPModeLocal  = "local"
)

type Config struct {
	BotToken string

	BackendURL     string        `validate:"required,url"`
	BackendTimeout time.Duration `validate:"gt=0"`

	OTPMode       string `validate:"oneof=remote local"`
	OTPTTL        time.Duration
	ExposeDemoOTP bool

	// SessionIdleTimeout drops a Telegram chat's session after this much
	// silence. Zero keeps sessions until /start.
	SessionIdleTimeout time.Duration `validate:"gte=0"`

	CustomersFile      string
	FallbackCustomerID string `validate:"required"`

	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`
}

func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("config.Load: no .env file found - using env variables")
	}

	cfg := &Config{
		BotToken:           os.Getenv("BOT_TOKEN"),
		BackendURL:         getEnv("BACKEND_URL", "http://localhost:8000"),
		OTPMode:            getEnv("OTP_MODE", OTPModeRemote),
		CustomersFile:      getEnv("CUSTOMERS_FILE", "customers.yaml"),
		FallbackCustomerID: getEnv("FALLBACK_CUSTOMER_ID", "C001"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             os.Getenv("DB_NAME"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	if cfg.BackendTimeout, err = getEnvDuration("BACKEND_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if cfg.OTPTTL, err = getEnvDuration("OTP_TTL", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if cfg.SessionIdleTimeout, err = getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if cfg.ExposeDemoOTP, err = getEnvBool("DEMO_EXPOSE_OTP", false); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// Validate checks struct rules plus the cross-field database requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.DBName != "" && (c.DBUser == "" || c.DBPassword == "") {
		return fmt.Errorf("DB_USER, DB_PASSWORD are required when DB_NAME is set")
	}

	return nil
}

func (c *Config) RequireBotToken() error {
	if c.BotToken == "" {
		return fmt.Errorf("config.Load: BOT_TOKEN is required")
	}

	return nil
}

func (c *Config) UseDatabase() bool {
	return c.DBName != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}

	return b, nil
}
