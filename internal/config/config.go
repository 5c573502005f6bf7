package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tentera/tentera_api/internal/notification"
	"github.com/tentera/tentera_api/internal/verification"
)

const (
	defaultAppName         = "TenteraAPI"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	codeTTLSecondsEnvVar   = "CODE_TTL_SECONDS"
	codeTTLDurEnvVar       = "CODE_TTL"
	configFileEnvVar       = "CONFIG_FILE"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// Code store backends.
const (
	CodeStoreMemory = "memory"
	CodeStoreRedis  = "redis"
)

// Config captures application runtime configuration. Values come from an
// optional YAML file named by CONFIG_FILE and are then overridden by the
// environment.
type Config struct {
	AppName        string                    `yaml:"app_name"`
	AppEnv         string                    `yaml:"app_env"`
	Port           string                    `yaml:"port"`
	LogLevel       string                    `yaml:"log_level"`
	LogFile        string                    `yaml:"log_file"`
	DatabaseDriver string                    `yaml:"database_driver"`
	DatabaseURL    string                    `yaml:"database_url"`
	RedisURL       string                    `yaml:"redis_url"`
	CodeStore      string                    `yaml:"code_store"`
	CodeTTL        time.Duration             `yaml:"code_ttl"`
	ShutdownPeriod time.Duration             `yaml:"shutdown_timeout"`
	IdempotencyTTL time.Duration             `yaml:"idempotency_ttl"`
	SMTP           notification.SMTPConfig   `yaml:"smtp"`
	Twilio         notification.TwilioConfig `yaml:"twilio"`
}

func defaults() Config {
	return Config{
		AppName:        defaultAppName,
		AppEnv:         defaultAppEnv,
		Port:           defaultPort,
		LogLevel:       defaultLogLevel,
		DatabaseDriver: DriverPostgres,
		CodeStore:      CodeStoreMemory,
		CodeTTL:        verification.DefaultTTL,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}
}

// Load reads configuration values and validates them.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv(configFileEnvVar); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.AppName = getEnv("APP_NAME", cfg.AppName)
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.DatabaseDriver = strings.ToLower(getEnv("DATABASE_DRIVER", cfg.DatabaseDriver))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.CodeStore = strings.ToLower(getEnv("CODE_STORE", cfg.CodeStore))

	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.From = getEnv("SMTP_FROM", cfg.SMTP.From)
	cfg.Twilio.AccountSID = getEnv("TWILIO_ACCOUNT_SID", cfg.Twilio.AccountSID)
	cfg.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", cfg.Twilio.AuthToken)
	cfg.Twilio.FromNumber = getEnv("TWILIO_FROM_NUMBER", cfg.Twilio.FromNumber)

	var err error
	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", cfg.SMTP.Port); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.Connections, err = intEnv("SMTP_CONNECTIONS", cfg.SMTP.Connections); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.SendTimeout, err = durationEnv("", "SMTP_SEND_TIMEOUT", cfg.SMTP.SendTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CodeTTL, err = durationEnv(codeTTLSecondsEnvVar, codeTTLDurEnvVar, cfg.CodeTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks option values and cross-field requirements.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.CodeStore {
	case CodeStoreMemory, CodeStoreRedis:
	default:
		return fmt.Errorf("unsupported CODE_STORE %q", c.CodeStore)
	}
	if c.CodeTTL <= 0 {
		return errors.New("code ttl must be positive")
	}
	if c.CodeStore == CodeStoreRedis && c.RedisURL == "" {
		return errors.New("REDIS_URL must be set when CODE_STORE=redis")
	}

	if c.IsDevelopment() {
		return nil
	}
	if c.DatabaseDriver != DriverMemory && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set")
	}
	if c.SMTP.Enabled() && (c.SMTP.Port == 0 || c.SMTP.From == "") {
		return errors.New("SMTP_PORT and SMTP_FROM must be set with SMTP_HOST")
	}
	if c.Twilio.Enabled() && (c.Twilio.AuthToken == "" || c.Twilio.FromNumber == "") {
		return errors.New("TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER must be set with TWILIO_ACCOUNT_SID")
	}
	return nil
}

// IsDevelopment reports whether the app runs in a local environment where
// missing infrastructure falls back to in-memory stand-ins.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", configFileEnvVar, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// durationEnv reads whole seconds from secondsKey first, then a Go duration
// string from durationKey.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}
