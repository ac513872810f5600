package config

import (
	"fmt"
	"os"

	"watershed-sync/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Overlay process environment from .env when present
	_ = godotenv.Load()

	// 2. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 3. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 4. Environment wins over file values for secrets and log level
	config.applyEnvironment()
	config.applyDefaults()

	// 5. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyEnvironment pulls values that should never live in the YAML file.
func (c *Config) applyEnvironment() {
	if token := os.Getenv("PROVIDER_AUTH_TOKEN"); token != "" {
		c.Provider.AuthToken = token
	}
	if conn := os.Getenv("DB_CONNECTION_STRING"); conn != "" {
		c.Storage.DBConnectionString = conn
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Provider.Scheme == "" {
		c.Provider.Scheme = "https"
	}
	if c.Storage.SiteLabel == "" {
		c.Storage.SiteLabel = "name"
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = c.Name
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Provider configuration
	if c.Provider.Scheme != "http" && c.Provider.Scheme != "https" {
		return fmt.Errorf("invalid provider scheme: %s", c.Provider.Scheme)
	}
	if c.Provider.Host == "" {
		return fmt.Errorf("provider host cannot be empty")
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}
	if c.Storage.SiteLabel != "name" && c.Storage.SiteLabel != "site_number" {
		return fmt.Errorf("invalid site label: %s (must be name or site_number)", c.Storage.SiteLabel)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Worker configuration
	if c.Worker.BinaryPath == "" {
		return fmt.Errorf("worker binary path cannot be empty")
	}

	// Validate Jobs
	seen := make(map[string]bool)
	for i, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job %d must have a name", i)
		}
		if seen[job.Name] {
			return fmt.Errorf("duplicate job name: %s", job.Name)
		}
		seen[job.Name] = true
		if job.Mode != models.ModeExtract && job.Mode != models.ModeGrid {
			return fmt.Errorf("job '%s' has invalid mode: %s", job.Name, job.Mode)
		}
		if job.WatershedID == "" {
			return fmt.Errorf("job '%s' must name a watershed", job.Name)
		}
		if job.Mode == models.ModeGrid && len(job.ProductIDs) == 0 {
			return fmt.Errorf("job '%s' must list at least one product", job.Name)
		}
		if job.ScheduleMinutes < 0 {
			return fmt.Errorf("job '%s' schedule cannot be negative", job.Name)
		}
		if job.LookbackHours < 0 {
			return fmt.Errorf("job '%s' lookback cannot be negative", job.Name)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
