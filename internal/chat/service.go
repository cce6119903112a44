// Package chat orchestrates one companion turn across the engine components.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/affection"
	"github.com/easeaico/companion-engine/internal/apperr"
	"github.com/easeaico/companion-engine/internal/facts"
	"github.com/easeaico/companion-engine/internal/gateway"
	"github.com/easeaico/companion-engine/internal/models"
	"github.com/easeaico/companion-engine/internal/prompt"
	"github.com/easeaico/companion-engine/internal/quest"
	"github.com/easeaico/companion-engine/internal/types"
)

// Typing delay bounds in milliseconds.
const (
	minTypingDelayMs = 800
	maxTypingDelayMs = 4000
	msPerAnswerChar  = 25

	// sideEffectTimeout bounds post-response persistence work.
	sideEffectTimeout = 10 * time.Second
)

// Store is the persistence surface the service needs.
type Store interface {
	GetRelationship(ctx context.Context, userID, characterID string) (*types.RelationshipRecord, error)
	UpsertRelationship(ctx context.Context, record *types.RelationshipRecord) error
	AppendMessage(ctx context.Context, msg *types.ConversationMessage) error
}

// Request is one chat turn from the hosting application.
type Request struct {
	UserID              string
	CharacterID         string
	Question            string
	ModelName           string
	Mood                string
	CustomInstructions  string
	ConversationHistory []models.Message
	Character           *types.PersonaDefinition
	PersistentContext   string
	IncognitoMode       bool
}

// Response is the turn result with engagement metadata.
type Response struct {
	Answer         string `json:"answer"`
	Mood           string `json:"mood"`
	TypingDelay    int    `json:"typingDelay"`
	Greeting       string `json:"greeting,omitempty"`
	AffectionGain  *int   `json:"affectionGain,omitempty"`
	AffectionLevel int    `json:"affectionLevel"`
	QuestTrigger   bool   `json:"questTrigger"`
}

// Service wires the composer, gateway, and engines into the per-turn flow.
type Service struct {
	store     Store
	gateway   *gateway.Gateway
	composer  *prompt.Composer
	affection *affection.Engine
	quests    *quest.Engine
	log       zerolog.Logger
	nowFunc   func() time.Time
	// dispatch runs post-response side effects; replaced in tests to run
	// synchronously.
	dispatch func(fn func())
}

// NewService creates the chat service.
func NewService(store Store, gw *gateway.Gateway, affectionEngine *affection.Engine, questEngine *quest.Engine, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		gateway:   gw,
		composer:  prompt.NewComposer(),
		affection: affectionEngine,
		quests:    questEngine,
		log:       log.With().Str("component", "chat").Logger(),
		nowFunc:   time.Now,
		dispatch:  func(fn func()) { go fn() },
	}
}

// HandleTurn runs the full flow: validate, compose, send, update affection,
// extract memory asynchronously, and roll for a quest offer. Side-effect
// failures never fail the turn once an answer exists.
func (s *Service) HandleTurn(ctx context.Context, req *Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	record, err := s.loadOrInitRecord(ctx, req.UserID, req.CharacterID)
	recordLoaded := err == nil
	if err != nil {
		// Answer from a fresh default, but suppress every write for this
		// turn: upserting the default would overwrite the pair's real
		// persisted state and drop affection it has already earned.
		s.log.Error().Err(err).Msg("failed to load relationship, answering without persistence")
		record = newRecord(req.UserID, req.CharacterID)
	}

	composed, err := s.composer.Compose(prompt.Context{
		Persona:            req.Character,
		Mood:               req.Mood,
		CustomInstructions: req.CustomInstructions,
		Relationship:       s.relationshipContext(record, req.PersistentContext),
		History:            req.ConversationHistory,
		CurrentMessage:     req.Question,
	})
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	result, err := s.gateway.Send(ctx, &gateway.SendRequest{
		PersonaPrompt:  composed.PersonaPrompt,
		MemoryPrompt:   composed.MemoryPrompt,
		History:        composed.History,
		CurrentMessage: composed.CurrentMessage,
		Options: gateway.SendOptions{
			Model:         req.ModelName,
			Mood:          req.Mood,
			CharacterName: req.Character.Name,
			Incognito:     req.IncognitoMode,
		},
	})
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Answer:      result.Answer,
		Mood:        req.Mood,
		TypingDelay: typingDelay(result.Answer),
	}
	if len(req.ConversationHistory) == 0 {
		resp.Greeting = s.greeting(record, req.Character)
	}

	if req.IncognitoMode || !recordLoaded {
		// Incognito turns and turns whose record could not be read produce
		// an answer but leave no trace: no memory extraction, no affection
		// persistence, no quest eligibility.
		resp.AffectionLevel = record.AffectionLevel
		return resp, nil
	}

	sessionMessages := len(req.ConversationHistory)/2 + 1
	gain, sources := s.affection.TurnGain(record, sessionMessages)
	record.TotalMessages++
	record.LastInteractionAt = s.nowFunc()

	updated, err := s.affection.Update(ctx, record, gain, sources[0])
	if err != nil {
		s.log.Warn().Err(err).Msg("affection update failed")
		resp.AffectionLevel = record.AffectionLevel
	} else {
		resp.AffectionGain = &gain
		resp.AffectionLevel = updated.NewLevel
	}

	resp.QuestTrigger = record.ActiveQuest == nil &&
		s.quests.ShouldOffer(record.AffectionLevel, sessionMessages)

	question, answer := req.Question, result.Answer
	snapshot := *record
	s.dispatch(func() {
		s.persistTurn(&snapshot, question, answer)
	})

	return resp, nil
}

// persistTurn stores the turn messages and any newly extracted facts.
// Failures are logged and swallowed.
func (s *Service) persistTurn(record *types.RelationshipRecord, question, answer string) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	now := s.nowFunc()
	userMsg := &types.ConversationMessage{
		UserID:      record.UserID,
		CharacterID: record.CharacterID,
		Role:        types.RoleUser,
		Content:     question,
		CreatedAt:   now,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		s.log.Warn().Err(err).Msg("failed to append user message")
	}
	aiMsg := &types.ConversationMessage{
		UserID:      record.UserID,
		CharacterID: record.CharacterID,
		Role:        types.RoleSpeech,
		Content:     answer,
		CreatedAt:   now,
	}
	if err := s.store.AppendMessage(ctx, aiMsg); err != nil {
		s.log.Warn().Err(err).Msg("failed to append ai message")
	}

	newFacts := facts.ExtractFacts(question, record.RememberedFacts)
	if len(newFacts) == 0 {
		return
	}
	record.RememberedFacts = facts.Append(record.RememberedFacts, newFacts)
	if err := s.store.UpsertRelationship(ctx, record); err != nil {
		s.log.Warn().Err(err).Int("new_facts", len(newFacts)).Msg("failed to persist extracted facts")
		return
	}
	s.log.Debug().Str("user", record.UserID).Int("new_facts", len(newFacts)).Msg("facts extracted")
}

func (s *Service) relationshipContext(record *types.RelationshipRecord, persistentContext string) *prompt.RelationshipContext {
	rc := &prompt.RelationshipContext{
		TierDirective: affection.ContextFor(affection.TierOf(record.AffectionLevel)),
		Status:        affection.StatusFor(affection.TierOf(record.AffectionLevel)),
		TotalMessages: record.TotalMessages,
		Facts:         record.RememberedFacts,
	}
	if persistentContext != "" {
		rc.Facts = append(append([]string{}, rc.Facts...), persistentContext)
	}
	return rc
}

// greeting prefers a memory-aware greeting and falls back to the persona's
// static one.
func (s *Service) greeting(record *types.RelationshipRecord, persona *types.PersonaDefinition) string {
	if g, ok := facts.ContextualGreeting(record.RememberedFacts, record.LastInteractionAt, s.nowFunc()); ok {
		return g
	}
	return persona.Greeting
}

func (s *Service) loadOrInitRecord(ctx context.Context, userID, characterID string) (*types.RelationshipRecord, error) {
	record, err := s.store.GetRelationship(ctx, userID, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationship: %w", err)
	}
	if record == nil {
		record = newRecord(userID, characterID)
	}
	return record, nil
}

func newRecord(userID, characterID string) *types.RelationshipRecord {
	return &types.RelationshipRecord{
		UserID:                userID,
		CharacterID:           characterID,
		AffectionVisibleLevel: affection.TierOf(0),
		RelationshipStatus:    affection.StatusFor(affection.TierOf(0)),
	}
}

func validate(req *Request) error {
	switch {
	case req == nil:
		return apperr.Validation("request body is required")
	case strings.TrimSpace(req.UserID) == "":
		return apperr.Validation("userId is required")
	case strings.TrimSpace(req.CharacterID) == "":
		return apperr.Validation("characterId is required")
	case strings.TrimSpace(req.Question) == "":
		return apperr.Validation("question is required")
	case strings.TrimSpace(req.ModelName) == "":
		return apperr.Validation("modelName is required")
	case req.Character == nil:
		return apperr.Validation("characterData is required")
	}
	return nil
}

func typingDelay(answer string) int {
	delay := len(answer) * msPerAnswerChar
	if delay < minTypingDelayMs {
		return minTypingDelayMs
	}
	if delay > maxTypingDelayMs {
		return maxTypingDelayMs
	}
	return delay
}
