package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Migration MigrationConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// MigrationConfig represents data migration configuration
type MigrationConfig struct {
	AppLabel        string // Application namespace whose permissions are generated
	SplitMode       string // "fixed" or "legacy"
	ModelRegistry   string // Optional YAML file replacing the built-in model registry
	LookupCacheSize int    // Entries kept by the catalog lookup cache
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	TextfilePath string // Empty disables the textfile export
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root directory
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	// Set config file name based on environment
	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")

	// A deployed binary has no go.mod around it; the working directory is searched then
	if projectRoot, err := findProjectRoot(); err == nil {
		viper.AddConfigPath(projectRoot)
	}
	viper.AddConfigPath(".")

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "galaxy_ng")
	viper.SetDefault("DB_NAME", "galaxy_ng")
	viper.SetDefault("DB_SSLMODE", "disable")

	// Migration defaults
	viper.SetDefault("MIGRATE_APP_LABEL", "galaxy")
	viper.SetDefault("MIGRATE_SPLIT_MODE", "fixed")
	viper.SetDefault("MIGRATE_MODEL_REGISTRY", "")
	viper.SetDefault("MIGRATE_LOOKUP_CACHE_SIZE", 1024)

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("METRICS_TEXTFILE", "")

	return nil
}

// Load loads configuration from viper
func Load() (*Config, error) {
	// DB_PASSWORD is required for security
	dbPassword := viper.GetString("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: dbPassword,
			Database: viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Migration: MigrationConfig{
			AppLabel:        viper.GetString("MIGRATE_APP_LABEL"),
			SplitMode:       viper.GetString("MIGRATE_SPLIT_MODE"),
			ModelRegistry:   viper.GetString("MIGRATE_MODEL_REGISTRY"),
			LookupCacheSize: viper.GetInt("MIGRATE_LOOKUP_CACHE_SIZE"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		Metrics: MetricsConfig{
			TextfilePath: viper.GetString("METRICS_TEXTFILE"),
		},
	}

	if config.Migration.AppLabel == "" {
		return nil, fmt.Errorf("MIGRATE_APP_LABEL must not be empty")
	}
	if config.Migration.SplitMode != "fixed" && config.Migration.SplitMode != "legacy" {
		return nil, fmt.Errorf("MIGRATE_SPLIT_MODE must be fixed or legacy, got %q", config.Migration.SplitMode)
	}

	return config, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
