package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Ollama   OllamaConfig   `json:"ollama" toml:"ollama"`
	Server   ServerConfig   `json:"server" toml:"server"`
	Database DatabaseConfig `json:"database" toml:"database"`
	Cache    CacheConfig    `json:"cache" toml:"cache"`
	Log      LogConfig      `json:"log" toml:"log"`
}

// OllamaConfig holds the vision model endpoint and credentials. APIKey is
// sent as a bearer token for endpoints behind an authenticating proxy.
type OllamaConfig struct {
	Endpoint       string                 `json:"endpoint" toml:"endpoint"`
	APIKey         string                 `json:"api_key" toml:"api_key"`
	VisionModel    string                 `json:"vision_model" toml:"vision_model"`
	TimeoutSeconds int                    `json:"timeout_seconds" toml:"timeout_seconds"`
	RetryAttempts  uint                   `json:"retry_attempts" toml:"retry_attempts"`
	ContextWindow  int                    `json:"context_window" toml:"context_window"`
	Temperature    float64                `json:"temperature" toml:"temperature"`
	TopP           float64                `json:"top_p" toml:"top_p"`
	Options        map[string]interface{} `json:"options" toml:"options"`
}

type ServerConfig struct {
	Port     int    `json:"port" toml:"port"`
	Host     string `json:"host" toml:"host"`
	LockPath string `json:"lock_path" toml:"lock_path"`
}

// DatabaseConfig selects the optional SQL store. An empty Driver disables it.
type DatabaseConfig struct {
	Driver   string `json:"driver" toml:"driver"`
	DSN      string `json:"dsn" toml:"dsn"`
	Host     string `json:"host" toml:"host"`
	Port     int    `json:"port" toml:"port"`
	Username string `json:"username" toml:"username"`
	Password string `json:"password" toml:"password"`
	Database string `json:"database" toml:"database"`
}

type CacheConfig struct {
	Path string `json:"path" toml:"path"`
}

type LogConfig struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"`
}

const (
	DefaultEndpoint    = "http://localhost:11434"
	DefaultVisionModel = "llama3.2-vision"
	DefaultHost        = "localhost"
	DefaultPort        = 8080
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a JSON or TOML configuration file (chosen by extension),
// applies defaults and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Ollama.Endpoint == "" {
		c.Ollama.Endpoint = DefaultEndpoint
	}
	if c.Ollama.VisionModel == "" {
		c.Ollama.VisionModel = DefaultVisionModel
	}
	if c.Ollama.TimeoutSeconds == 0 {
		c.Ollama.TimeoutSeconds = 120
	}
	if c.Ollama.RetryAttempts == 0 {
		c.Ollama.RetryAttempts = 3
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.LockPath == "" {
		c.Server.LockPath = filepath.Join(os.TempDir(), "screenshot-organizer.lock")
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "postgresql" {
		c.Database.Driver = "postgres"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Ollama.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("ollama.endpoint: invalid URL %q", c.Ollama.Endpoint))
	}
	if c.Ollama.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("ollama.timeout_seconds: must not be negative"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "", "sqlite3", "sqlite":
		if c.Database.Driver != "" && c.Database.DSN == "" && c.Database.Database == "" {
			errs = append(errs, errors.New("database: sqlite requires dsn or database path"))
		}
	case "mysql", "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database: %s requires dsn or host", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported value %q", c.Database.Driver))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unsupported value %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// VisionTimeout is the per-call deadline for the vision model.
func (c *OllamaConfig) VisionTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Address is the HTTP listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
