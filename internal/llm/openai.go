package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tbourn/go-postgen/internal/config"
	"github.com/tbourn/go-postgen/internal/domain"
)

// OpenAI implements Generator with the official openai-go SDK (chat
// completions).
type OpenAI struct {
	Model string
	Opts  []option.RequestOption
}

// NewOpenAI validates cfg and returns an OpenAI generator.
func NewOpenAI(cfg config.LLMConfig, extra ...option.RequestOption) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; set LLM_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{Model: cfg.Model, Opts: append(opts, extra...)}, nil
}

func (o *OpenAI) Complete(ctx context.Context, p Prompt) (Completion, error) {
	client := openai.NewClient(o.Opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	})
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("openai: empty choices")
	}
	return Completion{
		Text: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: domain.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}
