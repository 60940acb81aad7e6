// ABOUTME: Configuration management for dreamscribe with YAML config loading.
// ABOUTME: Handles storage, AI service, speech, and log settings plus DREAMSCRIBE_* env overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DREAMSCRIBE_AI_API_KEY.
const EnvPrefix = "DREAMSCRIBE"

const (
	DefaultBackend  = "file"
	DefaultLogLevel = "info"
)

// Config stores dreamscribe configuration loaded from ~/.config/dreamscribe/config.yaml.
type Config struct {
	Storage StorageConfig `yaml:"storage" split_words:"true"`
	AI      AIConfig      `yaml:"ai" split_words:"true"`
	Speech  SpeechConfig  `yaml:"speech" split_words:"true"`
	Log     LogConfig     `yaml:"log" split_words:"true"`
}

// StorageConfig selects the persistence backend and its location.
type StorageConfig struct {
	Backend string `yaml:"backend,omitempty" split_words:"true"`
	Path    string `yaml:"path,omitempty" split_words:"true"`
}

// AIConfig holds the interpretation and image service settings.
type AIConfig struct {
	APIKey       string `yaml:"api_key,omitempty" split_words:"true"`
	Model        string `yaml:"model,omitempty" split_words:"true"`
	BaseURL      string `yaml:"base_url,omitempty" split_words:"true"`
	Region       string `yaml:"region,omitempty" split_words:"true"`
	ImageAPIKey  string `yaml:"image_api_key,omitempty" split_words:"true"`
	ImageBaseURL string `yaml:"image_base_url,omitempty" split_words:"true"`
	ImageModel   string `yaml:"image_model,omitempty" split_words:"true"`
}

// SpeechConfig points at an optional websocket transcription endpoint.
type SpeechConfig struct {
	URL string `yaml:"url,omitempty" split_words:"true"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level,omitempty" split_words:"true"`
}

// HasInterpreter returns true if the interpretation service is configured.
func (c *Config) HasInterpreter() bool {
	return c.AI.APIKey != "" && c.AI.Model != ""
}

// HasVisualizer returns true if the image service is configured.
func (c *Config) HasVisualizer() bool {
	return c.AI.ImageAPIKey != ""
}

// Backend returns the storage backend, defaulting to file.
func (c *Config) Backend() string {
	if c.Storage.Backend == "" {
		return DefaultBackend
	}
	return strings.ToLower(c.Storage.Backend)
}

// LogLevel returns the configured log level, defaulting to info.
func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return DefaultLogLevel
	}
	return c.Log.Level
}

// GetDataDir returns the journal data directory, defaulting to $XDG_DATA_HOME/dreamscribe.
func (c *Config) GetDataDir() (string, error) {
	if c.Storage.Path != "" {
		return ExpandPath(c.Storage.Path)
	}
	return DataDir()
}

// StoragePath returns the location handed to the storage backend: a directory
// for the file backend, a database file for sqlite.
func (c *Config) StoragePath() (string, error) {
	dir, err := c.GetDataDir()
	if err != nil {
		return "", err
	}
	if c.Backend() == "sqlite" {
		return filepath.Join(dir, "journal.db"), nil
	}
	return dir, nil
}

// LogPath returns the log file used while the terminal UI owns the screen.
func (c *Config) LogPath() (string, error) {
	dir, err := c.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dreamscribe.log"), nil
}

// DataDir returns the default data directory.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "dreamscribe"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "dreamscribe", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// LoadFile reads config from disk only. Returns default config if file doesn't exist.
func LoadFile() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Load reads config from disk and applies DREAMSCRIBE_* environment overrides.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
