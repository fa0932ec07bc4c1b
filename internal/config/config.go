// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Identify IdentifyConfig `mapstructure:"identify"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ScanConfig controls the discovery loop and the identification worker pool
type ScanConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Workers         int           `mapstructure:"workers"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	BackoffMax      time.Duration `mapstructure:"backoff_max"`
	AutoStart       bool          `mapstructure:"auto_start"`
	ShutdownGrace   time.Duration `mapstructure:"shutdown_grace"`
	IncludePatterns []string      `mapstructure:"include_patterns"`
	ExcludePatterns []string      `mapstructure:"exclude_patterns"`
}

// IdentifyConfig controls a single identification attempt
type IdentifyConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	BaudRate int           `mapstructure:"baud_rate"`
	SyncMax  int           `mapstructure:"sync_max"`
}

// StorageConfig represents the optional Postgres audit store
type StorageConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/macscan")

	viper.SetEnvPrefix("MACSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional; defaults plus environment are enough to run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8086")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Scan defaults
	viper.SetDefault("scan.poll_interval", "1s")
	viper.SetDefault("scan.workers", 4)
	viper.SetDefault("scan.max_attempts", 3)
	viper.SetDefault("scan.retry_delay", "2s")
	viper.SetDefault("scan.backoff_max", "10s")
	viper.SetDefault("scan.auto_start", true)
	viper.SetDefault("scan.shutdown_grace", "5s")
	viper.SetDefault("scan.include_patterns", []string{})
	viper.SetDefault("scan.exclude_patterns", []string{})

	// Identify defaults
	viper.SetDefault("identify.timeout", "5s")
	viper.SetDefault("identify.baud_rate", 115200)
	viper.SetDefault("identify.sync_max", 7)

	// Storage defaults
	viper.SetDefault("storage.enabled", false)
	viper.SetDefault("storage.host", "localhost")
	viper.SetDefault("storage.port", 5432)
	viper.SetDefault("storage.user", "postgres")
	viper.SetDefault("storage.password", "postgres")
	viper.SetDefault("storage.dbname", "macscan")
	viper.SetDefault("storage.sslmode", "disable")
	viper.SetDefault("storage.max_open_conns", 25)
	viper.SetDefault("storage.max_idle_conns", 5)
	viper.SetDefault("storage.max_lifetime", "5m")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// App defaults
	viper.SetDefault("app.name", "macscan")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Scan.PollInterval <= 0 {
		return fmt.Errorf("scan.poll_interval must be positive")
	}
	if config.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if config.Scan.MaxAttempts <= 0 {
		return fmt.Errorf("scan.max_attempts must be positive")
	}
	if config.Scan.BackoffMax < config.Scan.RetryDelay {
		return fmt.Errorf("scan.backoff_max must be >= scan.retry_delay")
	}
	if config.Identify.Timeout <= 0 {
		return fmt.Errorf("identify.timeout must be positive")
	}
	if config.Storage.Enabled && config.Storage.Host == "" {
		return fmt.Errorf("storage.host is required when storage is enabled")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// GetStorageDSN returns the Postgres connection string
func (c *Config) GetStorageDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Storage.Host, c.Storage.Port, c.Storage.User,
		c.Storage.Password, c.Storage.DBName, c.Storage.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
