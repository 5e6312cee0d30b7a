package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
)

// NewFromEnv constructs the chat model described by the environment. It
// returns the resolved Config alongside so callers can log the backend; on
// ErrNotConfigured the model is nil and the Config is still returned.
func NewFromEnv(ctx context.Context) (model.BaseChatModel, *Config, error) {
	cfg := ConfigFromEnv()
	m, err := New(ctx, cfg)
	return m, cfg, err
}

// New constructs a chat model from an explicit Config, delegating to the
// appropriate backend constructor. It validates the config first so callers
// get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		m   model.BaseChatModel
		err error
	)
	switch cfg.Backend {
	case BackendOpenAI:
		m, err = newOpenAI(ctx, cfg)
	case BackendAzure:
		m, err = newAzure(ctx, cfg)
	case BackendOllama:
		m, err = newOllama(ctx, cfg)
	case BackendArk:
		m, err = newArk(ctx, cfg)
	case BackendGemini:
		m, err = newGemini(ctx, cfg)
	case BackendAnthropic:
		m, err = newAnthropic(cfg), nil
	}
	if err != nil {
		return nil, fmt.Errorf("provider: create %s model: %w", cfg.Backend, err)
	}
	return m, nil
}
