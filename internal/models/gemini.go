package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/easeaico/companion-engine/internal/apperr"
)

// geminiProvider adapts the Google GenAI client.
type geminiProvider struct {
	client *genai.Client
	name   string
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(ctx context.Context, apiKey string) (Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiProvider{client: client, name: "gemini"}, nil
}

func (p *geminiProvider) Name() string {
	return p.name
}

func (p *geminiProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.TopP > 0 {
		config.TopP = genai.Ptr(float32(req.TopP))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	var contents []*genai.Content
	var systemParts []string
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, "model"))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, "user"))
		}
	}
	if len(systemParts) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), "system")
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return nil, apperr.Upstream(0, fmt.Errorf("empty completion response"))
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	finishReason := FinishStop
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		finishReason = FinishLength
	}

	result := &CompletionResponse{
		Content:      text.String(),
		FinishReason: finishReason,
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result, nil
}

func mapGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.UpstreamTimeout(err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(apiErr.Code, err)
	}
	return apperr.Upstream(0, err)
}
