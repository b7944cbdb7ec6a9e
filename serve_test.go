package main

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsfandAhmad/Study-ChatBot/internal/adapter/llm"
	"github.com/AsfandAhmad/Study-ChatBot/internal/config"
	"github.com/AsfandAhmad/Study-ChatBot/internal/repository"
)

func TestOpenStore(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = ":memory:"

	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &repository.SQLiteStore{}, store)
	require.NoError(t, store.Close())

	cfg.DatabaseDriver = "oracle"
	_, err = openStore(context.Background(), cfg)
	assert.EqualError(t, err, `unknown database driver "oracle"`)
}

func TestOpenBrokerDefaultsToMemory(t *testing.T) {
	log, _ := test.NewNullLogger()
	broker, err := openBroker(config.Default(), log, nil)
	require.NoError(t, err)
	assert.IsType(t, &repository.MemoryBroker{}, broker)
	require.NoError(t, broker.Close())
}

func TestLLMOptions(t *testing.T) {
	cfg := config.Default()
	cfg.LLMAPIKey = "sk-openai"
	cfg.GeminiAPIKey = "gemini-key"

	opts := llmOptions(cfg)
	assert.Equal(t, "sk-openai", opts.APIKey)
	assert.Equal(t, llm.DefaultOpenAIModel, opts.Model)

	cfg.LLMProvider = llm.ProviderGemini
	opts = llmOptions(cfg)
	assert.Equal(t, "gemini-key", opts.APIKey)
	assert.Equal(t, llm.DefaultGeminiModel, opts.Model)

	cfg.LLMModel = "gemini-2.5-pro"
	assert.Equal(t, "gemini-2.5-pro", llmOptions(cfg).Model)
}

func TestLLMOptionsFromEnvGemini(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("LLM_MODEL", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultGeminiModel, llmOptions(cfg).Model)
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["chat"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
