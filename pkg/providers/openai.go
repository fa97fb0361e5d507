package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tinyland-inc/truefriend/pkg/config"
)

const defaultOpenAIModel = "gpt-4.1-mini"

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg config.ProviderConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIBase != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBase))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{client: &client, model: model}
}

func (p *OpenAI) Model() string {
	return p.model
}

func (p *OpenAI) Complete(ctx context.Context, system string, history []Turn, input string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)*2+2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, turn := range history {
		messages = append(messages,
			openai.UserMessage(turn.User),
			openai.AssistantMessage(turn.Assistant),
		)
	}
	messages = append(messages, openai.UserMessage(input))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai API call: empty choices")
	}

	return resp.Choices[0].Message.Content, nil
}
