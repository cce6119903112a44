package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/easeaico/companion-engine/internal/apperr"
)

// openaiProvider wraps an OpenAI-compatible chat client.
type openaiProvider struct {
	client *openai.Client
	name   string
}

// NewOpenAIProvider creates an OpenAI-compatible provider. baseURL may be
// empty for the default endpoint.
func NewOpenAIProvider(apiKey, baseURL string) (Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &openaiProvider{client: &client, name: "openai"}, nil
}

func (p *openaiProvider) Name() string {
	return p.name
}

func (p *openaiProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	params := buildOpenAIParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, apperr.Upstream(0, fmt.Errorf("empty completion response"))
	}

	choice := resp.Choices[0]
	finishReason := string(choice.FinishReason)
	if finishReason == "" {
		finishReason = FinishStop
	}

	return &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func buildOpenAIParams(req *CompletionRequest) *openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	params.Messages = messages

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(req.FrequencyPenalty)
	}
	if req.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(req.PresencePenalty)
	}
	return &params
}

func mapOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.UpstreamTimeout(err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apperr.Upstream(apiErr.StatusCode, err)
	}
	return apperr.Upstream(0, err)
}
