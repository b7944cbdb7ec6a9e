package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// EnvTutorMode is the environment variable name for mode selection.
	EnvTutorMode = "TUTOR_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// Provider names accepted by NewLLMClient.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Options configures NewLLMClient.
type Options struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// DefaultModel returns the model a provider uses when none is configured.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderOpenAI, "":
		return DefaultOpenAIModel
	default:
		return ""
	}
}

// NewLLMClient creates a backend based on the provider, honoring TUTOR_MODE=MOCK.
func NewLLMClient(ctx context.Context, opts Options, log logrus.FieldLogger) (LLMClient, error) {
	if os.Getenv(EnvTutorMode) == ModeMock {
		log.Info("TUTOR_MODE=MOCK detected, using mock LLM client")
		return NewMockClient(), nil
	}

	switch strings.ToLower(opts.Provider) {
	case ProviderMock:
		return NewMockClient(), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, opts.APIKey, opts.Model)
	case ProviderOpenAI, "":
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("llm base url is required for provider %q", ProviderOpenAI)
		}
		return NewOpenAIClient(opts.BaseURL, opts.APIKey, opts.Model, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
