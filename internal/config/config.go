package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Payment    PaymentConfig    `yaml:"payment"`
	Booking    BookingConfig    `yaml:"booking"`
	Worker     WorkerConfig     `yaml:"worker"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
	Seed       SeedConfig       `yaml:"seed"`
}

type APIConfig struct {
	HTTP           APIHTTPConfig      `yaml:"http"`
	GRPC           APIGRPCConfig      `yaml:"grpc"`
	RateLimit      APIRateLimitConfig `yaml:"rate_limit"`
	IdempotencyTTL time.Duration      `yaml:"idempotency_ttl"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// AuthConfig controls bearer token issuing and verification.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

const (
	ProviderStripe   = "stripe"
	ProviderRazorpay = "razorpay"
	ProviderSandbox  = "sandbox"
)

type PaymentConfig struct {
	Provider  string        `yaml:"provider"`
	SecretKey string        `yaml:"secret_key"`
	KeyID     string        `yaml:"key_id"`
	Currency  string        `yaml:"currency"`
	Timeout   time.Duration `yaml:"timeout"`

	// SandboxAutoSucceed makes sandbox intents succeed on creation.
	SandboxAutoSucceed bool `yaml:"sandbox_auto_succeed"`
}

type BookingConfig struct {
	// AdminOverrideIgnoresStock lets a Confirmed override succeed on a sold-out
	// package without holding an inventory unit.
	AdminOverrideIgnoresStock bool `yaml:"admin_override_ignores_stock"`
}

type WorkerConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	PollInterval time.Duration `yaml:"poll_interval"`
	QueueKey     string        `yaml:"queue_key"`
	// InProcess runs the task worker inside the API process instead of cmd/worker.
	InProcess bool `yaml:"in_process"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type SeedConfig struct {
	PackagesFile string `yaml:"packages_file"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken     string  `yaml:"bot_token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
	Debug        bool    `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
}

// Load reads .env (when present), expands environment references in the YAML
// file and returns a validated config with defaults applied.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth jwt secret is required")
	}

	return c.Payment.Validate()
}

func (p PaymentConfig) Validate() error {
	switch p.Provider {
	case ProviderSandbox:
		return nil
	case ProviderStripe:
		if p.SecretKey == "" {
			return errors.New("payment.secret_key is required for stripe")
		}
	case ProviderRazorpay:
		if p.KeyID == "" || p.SecretKey == "" {
			return errors.New("payment.key_id and payment.secret_key are required for razorpay")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", p.Provider)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.IdempotencyTTL == 0 {
		c.API.IdempotencyTTL = 24 * time.Hour
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 2 * time.Hour
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}

	c.Payment.Provider = strings.ToLower(strings.TrimSpace(c.Payment.Provider))
	if c.Payment.Provider == "" {
		c.Payment.Provider = ProviderSandbox
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "inr"
	}
	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 10 * time.Second
	}

	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
	if c.Worker.InitialDelay == 0 {
		c.Worker.InitialDelay = 2 * time.Second
	}
	if c.Worker.MaxDelay == 0 {
		c.Worker.MaxDelay = time.Minute
	}
	if c.Worker.Multiplier == 0 {
		c.Worker.Multiplier = 2
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = 5 * time.Second
	}
	if c.Worker.QueueKey == "" {
		c.Worker.QueueKey = "travelbooking:tasks"
	}

	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
