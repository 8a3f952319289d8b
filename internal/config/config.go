package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Backend  BackendConfig  `mapstructure:"backend"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Bank     BankConfig     `mapstructure:"bank"`
	Settings SettingsConfig `mapstructure:"settings"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig holds JWT configuration
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// BackendConfig selects the base URL used for internal backend calls.
// BaseURL resolves the fallback chain API_URL -> BACKEND_URL -> local default.
type BackendConfig struct {
	APIURL     string        `mapstructure:"api_url"`
	BackendURL string        `mapstructure:"backend_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// BaseURL returns the first configured backend base URL.
func (b BackendConfig) BaseURL() string {
	if b.APIURL != "" {
		return b.APIURL
	}
	if b.BackendURL != "" {
		return b.BackendURL
	}
	return "http://localhost:8080"
}

// SMTPConfig holds outbound mail configuration. An empty Host disables
// real delivery.
type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	SenderName string `mapstructure:"sender_name"`
}

// BankConfig holds the company bank account snapshot embedded in invoices.
type BankConfig struct {
	AccountName   string `mapstructure:"account_name"`
	BankName      string `mapstructure:"bank_name"`
	BSB           string `mapstructure:"bsb"`
	AccountNumber string `mapstructure:"account_number"`
}

// SettingsConfig mirrors the admin settings surface. CommissionRate is
// loaded for that surface only; the settlement invoice calculator runs on
// its fixed contractual rate.
type SettingsConfig struct {
	CommissionRate float64 `mapstructure:"commission_rate"`
}

// Load loads configuration from an optional file plus environment variables.
func Load(configPath string) (*Config, error) {
	setDefaults()
	viper.SetEnvPrefix("SETTLE")
	viper.AutomaticEnv()

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Legacy environment names used by existing deployments.
	_ = viper.BindEnv("backend.api_url", "API_URL")
	_ = viper.BindEnv("backend.backend_url", "BACKEND_URL")
	_ = viper.BindEnv("smtp.host", "SMTP_HOST")
	_ = viper.BindEnv("smtp.port", "SMTP_PORT")
	_ = viper.BindEnv("smtp.user", "SMTP_USER")
	_ = viper.BindEnv("smtp.password", "SMTP_PASS")
	_ = viper.BindEnv("server.port", "PORT")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)

	viper.SetDefault("database.path", "settlement.db")

	viper.SetDefault("auth.jwt_secret", "settle-secret-key")
	viper.SetDefault("auth.token_expiry", 24*time.Hour)

	viper.SetDefault("backend.timeout", 10*time.Second)

	viper.SetDefault("smtp.port", 2525)
	viper.SetDefault("smtp.sender_name", "PropFlow Settlements")

	viper.SetDefault("bank.account_name", "PropFlow Realty Pty Ltd")
	viper.SetDefault("bank.bank_name", "Commonwealth Bank")
	viper.SetDefault("bank.bsb", "062-000")
	viper.SetDefault("bank.account_number", "1234 5678")

	viper.SetDefault("settings.commission_rate", 2.5)
}
