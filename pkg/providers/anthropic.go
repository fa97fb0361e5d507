package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tinyland-inc/truefriend/pkg/config"
)

const defaultAnthropicModel = "claude-sonnet-4.6"

type Anthropic struct {
	client *anthropic.Client
	model  string
}

func NewAnthropic(cfg config.ProviderConfig) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := normalizeBaseURL(cfg.APIBase); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	return &Anthropic{client: &client, model: model}
}

func (p *Anthropic) Model() string {
	return p.model
}

func (p *Anthropic) Complete(ctx context.Context, system string, history []Turn, input string) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(history)*2+1)
	for _, turn := range history {
		messages = append(messages,
			anthropic.NewUserMessage(anthropic.NewTextBlock(turn.User)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Assistant)),
		)
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(input)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		Messages:  messages,
		MaxTokens: 1024,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}

func normalizeBaseURL(apiBase string) string {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if b, ok := strings.CutSuffix(base, "/v1"); ok {
		base = b
	}
	return base
}
