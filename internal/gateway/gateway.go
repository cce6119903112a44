// Package gateway bounds, caches, and issues calls to the LLM provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/apperr"
	"github.com/easeaico/companion-engine/internal/cache"
	"github.com/easeaico/companion-engine/internal/models"
)

// Default call parameters.
const (
	DefaultTimeout   = 30 * time.Second
	defaultMaxTokens = 400

	defaultTemperature      = 0.8
	defaultTopP             = 0.95
	defaultFrequencyPenalty = 0.3
	defaultPresencePenalty  = 0.3

	// resumeHistoryTurns is how many trailing turns accompany the one
	// follow-up call issued for a truncated completion.
	resumeHistoryTurns = 3
)

// SendOptions carry per-call parameters.
type SendOptions struct {
	Model         string
	Mood          string
	CharacterName string
	Incognito     bool
}

// SendRequest is one upstream chat call.
type SendRequest struct {
	PersonaPrompt  string
	MemoryPrompt   string
	History        []models.Message
	CurrentMessage string
	Options        SendOptions
}

// SendResult is the outcome of a successful call.
type SendResult struct {
	Answer       string
	FinishReason string
	Usage        models.Usage
	FromCache    bool
}

// Gateway issues admission-controlled, cached, deadline-bounded provider
// calls.
type Gateway struct {
	provider  models.Provider
	admission *AdmissionController
	cache     cache.Cache
	timeout   time.Duration
	log       zerolog.Logger
}

// New creates a gateway. cache may be nil to disable response caching.
func New(provider models.Provider, admission *AdmissionController, responseCache cache.Cache, timeout time.Duration, log zerolog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		provider:  provider,
		admission: admission,
		cache:     responseCache,
		timeout:   timeout,
		log:       log.With().Str("component", "gateway").Logger(),
	}
}

// Send performs one chat completion. Validation happens before admission and
// must not touch the in-flight counter; after admission the slot is released
// exactly once on every exit path.
func (g *Gateway) Send(ctx context.Context, req *SendRequest) (*SendResult, error) {
	if strings.TrimSpace(req.CurrentMessage) == "" {
		return nil, apperr.Validation("current message is required")
	}
	if strings.TrimSpace(req.Options.Model) == "" {
		return nil, apperr.Validation("model name is required")
	}

	// History-bearing turns are per-session-unique and are never cached.
	cacheable := g.cache != nil && len(req.History) == 0
	key := cacheKey(req.Options, req.CurrentMessage)
	if cacheable {
		if answer, ok := g.cache.Get(ctx, key); ok {
			g.log.Debug().Str("model", req.Options.Model).Msg("cache hit")
			return &SendResult{Answer: answer, FinishReason: models.FinishStop, FromCache: true}, nil
		}
	}

	if err := g.admission.Acquire(); err != nil {
		return nil, err
	}
	defer g.admission.Release()

	resp, err := g.complete(ctx, g.buildMessages(req), req.Options.Model)
	if err != nil {
		return nil, err
	}

	answer := resp.Content
	usage := resp.Usage
	finishReason := resp.FinishReason

	if finishReason == models.FinishLength {
		answer, usage, finishReason = g.resume(ctx, req, answer, usage)
	}

	if cacheable {
		g.cache.Put(ctx, key, answer)
	}

	return &SendResult{Answer: answer, FinishReason: finishReason, Usage: usage}, nil
}

// resume issues exactly one follow-up call for a truncated completion, using
// the last few history turns plus the truncated answer as context. Any
// outcome ends the attempt; failures keep the truncated answer.
func (g *Gateway) resume(ctx context.Context, req *SendRequest, truncated string, usage models.Usage) (string, models.Usage, string) {
	messages := []models.Message{{Role: models.RoleSystem, Content: req.PersonaPrompt}}

	history := req.History
	if len(history) > resumeHistoryTurns {
		history = history[len(history)-resumeHistoryTurns:]
	}
	messages = append(messages, history...)
	messages = append(messages,
		models.Message{Role: models.RoleUser, Content: req.CurrentMessage},
		models.Message{Role: models.RoleAssistant, Content: truncated},
		models.Message{Role: models.RoleUser, Content: "Continue your previous reply exactly where it was cut off. Do not repeat anything."},
	)

	resp, err := g.complete(ctx, messages, req.Options.Model)
	if err != nil {
		g.log.Warn().Err(err).Msg("resume call failed, returning truncated answer")
		return truncated, usage, models.FinishLength
	}

	usage.PromptTokens += resp.Usage.PromptTokens
	usage.CompletionTokens += resp.Usage.CompletionTokens
	usage.TotalTokens += resp.Usage.TotalTokens
	return truncated + resp.Content, usage, resp.FinishReason
}

// complete issues one provider call under a fresh hard deadline.
func (g *Gateway) complete(ctx context.Context, messages []models.Message, model string) (*models.CompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(callCtx, &models.CompletionRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      defaultTemperature,
		TopP:             defaultTopP,
		MaxTokens:        defaultMaxTokens,
		FrequencyPenalty: defaultFrequencyPenalty,
		PresencePenalty:  defaultPresencePenalty,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && callCtx.Err() == context.DeadlineExceeded {
			return nil, apperr.UpstreamTimeout(err)
		}
		if apperr.IsKind(err, apperr.KindUpstream) || apperr.IsKind(err, apperr.KindUpstreamTimeout) {
			return nil, err
		}
		return nil, apperr.Upstream(0, err)
	}
	return resp, nil
}

func (g *Gateway) buildMessages(req *SendRequest) []models.Message {
	messages := make([]models.Message, 0, len(req.History)+3)
	if req.PersonaPrompt != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: req.PersonaPrompt})
	}
	if req.MemoryPrompt != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: req.MemoryPrompt})
	}
	messages = append(messages, req.History...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: req.CurrentMessage})
	return messages
}

// cacheKey derives the cache key from the model, persona identity, the
// normalized question, mood, and the privacy flag.
func cacheKey(opts SendOptions, question string) string {
	return fmt.Sprintf("%s|%s|%s|%s|%t",
		opts.Model, opts.CharacterName, normalizeQuestion(question), opts.Mood, opts.Incognito)
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
