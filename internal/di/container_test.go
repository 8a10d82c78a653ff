package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ada-engine/internal/infrastructure/config"
)

func TestNewAgentContainer(t *testing.T) {
	cfg := config.Config{
		AppEnv:   "test",
		LogLevel: "error",
		LLM:      config.LLMConfig{APIKey: "sk-test", Temperature: 0.3},
		Tracing:  config.TracingConfig{ServiceName: "ada-engine-test", SampleRatio: 1},
	}

	c, err := NewAgentContainer(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotNil(t, c.Logger)
	assert.NotNil(t, c.LLM)
	assert.Nil(t, c.Router)
	assert.Equal(t, 1, c.Pipelines.Len())

	agent, err := c.Pipelines.For("any-project")
	require.NoError(t, err)
	assert.NotNil(t, agent)

	assert.NoError(t, c.Close())
}

func TestNewAgentContainer_BadPipelinesFile(t *testing.T) {
	cfg := config.Config{
		LogLevel:      "error",
		LLM:           config.LLMConfig{APIKey: "sk-test"},
		Tracing:       config.TracingConfig{ServiceName: "ada-engine-test"},
		PipelinesFile: "/does/not/exist.yaml",
	}

	_, err := NewAgentContainer(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read pipelines")
}
