package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigWithoutFile(t *testing.T) {
	// no config.yaml exists in the test working directory; defaults and
	// the environment are enough to run
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 8192, cfg.LLM.MaxTokens)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}
