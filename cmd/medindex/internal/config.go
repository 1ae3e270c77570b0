package internal

import (
	"fmt"
	"os"

	"github.com/DreamCats/medindex/internal/config"
)

// LoadConfig loads .env credentials, then the YAML config at configPath
// (or the default location).
func LoadConfig(configPath string) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample prints a minimal configuration to stderr.
func PrintConfigExample() {
	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Embedding service configuration (required)
embedding:
  # Provider: "google" | "openai"
  provider: google
  api_key: your-api-key          # or GOOGLE_AI_STUDIO_API_KEY / OPENAI_API_KEY
  model: text-embedding-004
  dimensions: 768

# Chunk store
database:
  driver: sqlite                 # or postgres with dsn (or MEDINDEX_DATABASE_DSN)
  path: ~/.medindex/data/medindex.db

Usage:
  1. Create the config file
  2. Put your books under ./books
  3. Run: medindex ingest
  4. Search: medindex search "vasopressor titration"
`, config.DefaultPath())
}
