package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking,omitempty"`
	Index     IndexConfig     `yaml:"index,omitempty"`
	Retrieval RetrievalConfig `yaml:"retrieval,omitempty"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// DatabaseConfig holds the experience database configuration
type DatabaseConfig struct {
	// Path to the SQLite database file holding experiences
	// If empty, uses ~/.expindex/data/experiences.db
	Path string `yaml:"path,omitempty"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "openai"

	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`

	Dimensions int `yaml:"dimensions"` // embedding dimension, fixed per index
	BatchSize  int `yaml:"batch_size"` // batch size for embedding requests
	Workers    int `yaml:"workers"`    // bounded worker pool for embed calls
}

// ChunkingConfig holds document chunking parameters
type ChunkingConfig struct {
	MaxSize int `yaml:"max_size,omitempty"` // maximum chunk size in bytes
	Overlap int `yaml:"overlap,omitempty"`  // overlap between consecutive chunks
}

// IndexConfig holds vector index storage configuration
type IndexConfig struct {
	// Dir is the directory holding the vector arena, the sidecar
	// document and the keyword index. If empty, uses ~/.expindex/index
	Dir string `yaml:"dir,omitempty"`
}

// RetrievalConfig holds query-time parameters
type RetrievalConfig struct {
	DefaultTopK         int     `yaml:"default_top_k,omitempty"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
}

// Load loads configuration from the default config file
// Default location: ~/.expindex/config/expindex.yaml
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".expindex", "config", "expindex.yaml")
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			homeDir, _ := os.UserHomeDir()
			defaultPath := filepath.Join(homeDir, ".expindex", "config", "expindex.yaml")
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 10
	}
	if c.Embedding.Workers == 0 {
		c.Embedding.Workers = 4
	}

	if c.Chunking.MaxSize == 0 {
		c.Chunking.MaxSize = 512
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 50
	}

	if c.Database.Path != "" {
		c.Database.Path = expandPath(c.Database.Path)
	}
	if c.Database.Path == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			c.Database.Path = filepath.Join(homeDir, ".expindex", "data", "experiences.db")
		}
	}

	if c.Index.Dir != "" {
		c.Index.Dir = expandPath(c.Index.Dir)
	}
	if c.Index.Dir == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			c.Index.Dir = filepath.Join(homeDir, ".expindex", "index")
		}
	}

	if c.Retrieval.DefaultTopK == 0 {
		c.Retrieval.DefaultTopK = 5
	}
	// SimilarityThreshold defaults to 0: any non-negative score passes
}

// Validate validates the configuration. Bad chunking or embedding
// parameters are fatal here, never silently corrected later.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("openai provider requires api_key")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got: %d", c.Embedding.Dimensions)
	}

	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 100 {
		return fmt.Errorf("batch_size must be between 1 and 100, got: %d", c.Embedding.BatchSize)
	}

	if c.Embedding.Workers <= 0 || c.Embedding.Workers > 64 {
		return fmt.Errorf("workers must be between 1 and 64, got: %d", c.Embedding.Workers)
	}

	if c.Chunking.MaxSize <= 0 {
		return fmt.Errorf("chunking max_size must be positive, got: %d", c.Chunking.MaxSize)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking overlap must not be negative, got: %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.MaxSize {
		return fmt.Errorf("chunking overlap (%d) must be smaller than max_size (%d)",
			c.Chunking.Overlap, c.Chunking.MaxSize)
	}

	if c.Retrieval.SimilarityThreshold < -1 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [-1, 1], got: %v", c.Retrieval.SimilarityThreshold)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in 1..65535, got: %d", c.Server.Port)
	}

	return nil
}

// Save saves the configuration to the default location
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".expindex", "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return c.SaveToFile(filepath.Join(configDir, "expindex.yaml"))
}

// SaveToFile saves the configuration to a specific file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const defaultConfigTemplate = `# expindex configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.expindex/config/expindex.yaml

server:
  host: 0.0.0.0
  port: 8000

database:
  # SQLite database holding the experience records
  path: ~/.expindex/data/experiences.db

embedding:
  provider: openai
  api_key: your-openai-api-key
  model: text-embedding-3-small
  dimensions: 384
  batch_size: 10
  workers: 4

chunking:
  max_size: 512
  overlap: 50

index:
  dir: ~/.expindex/index

retrieval:
  default_top_k: 5
  similarity_threshold: 0.0
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
