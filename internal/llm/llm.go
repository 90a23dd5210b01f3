// Package llm abstracts the text model used by the dev generation API.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbourn/go-postgen/internal/config"
	"github.com/tbourn/go-postgen/internal/domain"
)

// Generator produces post text for a prompt.
type Generator interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// Completion is generated text and the tokens it consumed.
type Completion struct {
	Text  string
	Usage domain.TokenUsage
}

// New returns the Generator selected by cfg.Provider.
func New(cfg config.LLMConfig) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", config.LLMProviderMock:
		return Mock{}, nil
	case config.LLMProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
