package internal

import (
	"fmt"
	"os"

	"github.com/placementarchive/expindex/internal/config"
)

// LoadConfig loads the YAML config from path, falling back to the
// default location when path is empty
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample writes a starter configuration to stderr
func PrintConfigExample() {
	homeDir, _ := os.UserHomeDir()
	configPath := fmt.Sprintf("%s/.expindex/config/expindex.yaml", homeDir)

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Embedding service configuration (required)
embedding:
  provider: openai
  api_key: your-openai-api-key
  model: text-embedding-3-small
  dimensions: 384               # fixed for the lifetime of the index
  batch_size: 10
  workers: 4

# HTTP server
server:
  host: 0.0.0.0
  port: 8000

# Storage locations default to ~/.expindex/
# database:
#   path: ~/.expindex/data/experiences.db
# index:
#   dir: ~/.expindex/index

retrieval:
  default_top_k: 5
  similarity_threshold: 0.25

Usage:
  1. Create the config file
  2. Run: expindex reindex
  3. Serve: expindex serve
`, configPath)
}
