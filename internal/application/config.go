package application

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration, loaded from a YAML file with
// environment overrides for the values that differ per deployment.
type Config struct {
	// HTTPAddr is the listen address of the operator API.
	HTTPAddr string `yaml:"http_addr" validate:"required"`

	// Mongo configures the persistent store.
	Mongo MongoConfig `yaml:"mongo" validate:"required"`

	// OpenAI configures the external batch completion service.
	OpenAI OpenAIConfig `yaml:"openai" validate:"required"`

	// MaxBatchLines caps request lines per submitted chunk.
	MaxBatchLines int `yaml:"max_batch_lines" validate:"min=1,max=50000"`

	// RefreshInterval is how often the batchwatch job polls batch
	// statuses.
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"min=1s"`
}

// MongoConfig holds the storage connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri" validate:"required"`
	Database string `yaml:"database" validate:"required"`
}

// OpenAIConfig holds the batch service settings. The API key is owned
// here by process-wide initialization rather than scattered call sites.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" validate:"required"`
	Model   string `yaml:"model" validate:"required"`
	BaseURL string `yaml:"base_url"`

	// RequestsPerSecond and Burst bound the client-side request rate.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`
}

// DefaultConfig returns the configuration used when a field is absent
// from the file and no override applies.
func DefaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "prefpoll",
		},
		OpenAI: OpenAIConfig{
			Model:             "gpt-4o-mini",
			RequestsPerSecond: 5,
			Burst:             10,
		},
		MaxBatchLines:   DefaultMaxBatchLines,
		RefreshInterval: time.Minute,
	}
}

// LoadConfig reads the YAML file at path (skipped when path is empty),
// applies environment overrides, and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides maps deployment-specific environment variables onto
// the configuration. Secrets in particular should come from the
// environment, not the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PREFPOLL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
}
