package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults apply without a file", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")

		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
		assert.Equal(t, "prefpoll", cfg.Mongo.Database)
		assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
		assert.Equal(t, DefaultMaxBatchLines, cfg.MaxBatchLines)
		assert.Equal(t, time.Minute, cfg.RefreshInterval)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		path := writeConfigFile(t, `
http_addr: ":9090"
mongo:
  uri: mongodb://db:27017
  database: polls
openai:
  model: gpt-4o
max_batch_lines: 100
refresh_interval: 30s
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.HTTPAddr)
		assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
		assert.Equal(t, "polls", cfg.Mongo.Database)
		assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
		assert.Equal(t, 100, cfg.MaxBatchLines)
		assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")
		t.Setenv("MONGO_URI", "mongodb://env:27017")
		path := writeConfigFile(t, `
mongo:
  uri: mongodb://file:27017
  database: polls
openai:
  api_key: sk-file
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "mongodb://env:27017", cfg.Mongo.URI)
		assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	})

	t.Run("missing api key fails validation", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")

		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "validate config")
	})

	t.Run("out of range batch lines fails validation", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		path := writeConfigFile(t, "max_batch_lines: 100000\n")

		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "validate config")
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "read config")
	})
}
