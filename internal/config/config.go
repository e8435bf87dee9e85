package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Page input contracts for the stop-reading prompt
const (
	InputIncremental = "incremental" // pages read this session
	InputAbsolute    = "absolute"    // page reached so far
)

// ErrNotConfigured is returned when a required dependency setting is missing
var ErrNotConfigured = errors.New("not configured")

// Config holds the application configuration
type Config struct {
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Reading  ReadingConfig  `yaml:"reading"`
	Metadata MetadataConfig `yaml:"metadata"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`

	// UserID keys the persona cache; empty means anonymous
	UserID string `yaml:"user_id"`
}

// APIConfig configures the REST backend client
type APIConfig struct {
	BaseURL    string `yaml:"base_url"` // e.g. http://localhost:3000/api
	Token      string `yaml:"token"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

// StorageConfig configures the local fallback store
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ReadingConfig configures the reading-session workflow
type ReadingConfig struct {
	InputMode string `yaml:"input_mode"`
}

// MetadataConfig configures book lookups
type MetadataConfig struct {
	GoogleBooksAPIKey string `yaml:"google_books_api_key"`
}

// ServerConfig configures booklens-server
type ServerConfig struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	dataDir := "./data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".booklens")
	}
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:3000/api",
			Timeout:    "10s",
			MaxRetries: 3,
		},
		Storage: StorageConfig{DataDir: dataDir},
		Reading: ReadingConfig{InputMode: InputIncremental},
		Server: ServerConfig{
			Port:   "3000",
			DBPath: filepath.Join(dataDir, "booklens.db"),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.booklens/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".booklens", "config.yaml")
}

// Load reads the YAML file at path (missing file means defaults), then a .env
// file if present, then environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads only the YAML file over the defaults, without .env or
// environment overrides. Use it to edit and Save the file.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("BOOKLENS_API_BASE_URL", &c.API.BaseURL)
	setString("BOOKLENS_API_TOKEN", &c.API.Token)
	setString("BOOKLENS_API_TIMEOUT", &c.API.Timeout)
	setString("BOOKLENS_DATA_DIR", &c.Storage.DataDir)
	setString("BOOKLENS_USER_ID", &c.UserID)
	setString("BOOKLENS_INPUT_MODE", &c.Reading.InputMode)
	setString("BOOKLENS_LOG_LEVEL", &c.Logging.Level)
	setString("GOOGLE_BOOKS_API_KEY", &c.Metadata.GoogleBooksAPIKey)
	setString("BOOKLENS_PORT", &c.Server.Port)
	setString("BOOKLENS_DB_PATH", &c.Server.DBPath)
	setString("BOOKLENS_JWT_SECRET", &c.Server.JWTSecret)

	if v := os.Getenv("BOOKLENS_API_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BOOKLENS_API_MAX_RETRIES: %w", err)
		}
		c.API.MaxRetries = n
	}
	return nil
}

// Validate checks option values
func (c *Config) Validate() error {
	switch c.Reading.InputMode {
	case InputIncremental, InputAbsolute:
	default:
		return fmt.Errorf("invalid reading.input_mode %q (want %s or %s)", c.Reading.InputMode, InputIncremental, InputAbsolute)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must not be negative")
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	return nil
}

// RequestTimeout parses the API timeout
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.API.Timeout == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid api.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("api.timeout must be positive")
	}
	return d, nil
}

// LocalStorePath returns the local fallback store file
func (c *Config) LocalStorePath() string {
	return filepath.Join(c.Storage.DataDir, "localstorage.json")
}

// RequireJWTSecret returns the server secret or ErrNotConfigured
func (c *Config) RequireJWTSecret() ([]byte, error) {
	if c.Server.JWTSecret == "" {
		return nil, fmt.Errorf("server.jwt_secret (BOOKLENS_JWT_SECRET): %w", ErrNotConfigured)
	}
	return []byte(c.Server.JWTSecret), nil
}
