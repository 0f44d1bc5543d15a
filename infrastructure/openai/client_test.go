package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefpoll/prefpoll/internal/application"
)

func TestNewClient(t *testing.T) {
	t.Run("requires an api key", func(t *testing.T) {
		_, err := NewClient(application.OpenAIConfig{})
		assert.ErrorIs(t, err, ErrEmptyAPIKey)
	})

	t.Run("accepts a base url override", func(t *testing.T) {
		c, err := NewClient(application.OpenAIConfig{
			APIKey:  "sk-test",
			BaseURL: "http://localhost:8081/v1",
		})
		require.NoError(t, err)
		assert.NotNil(t, c)
	})
}
