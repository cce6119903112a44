package chat

import (
	"context"
	"fmt"

	"github.com/easeaico/companion-engine/internal/affection"
	"github.com/easeaico/companion-engine/internal/apperr"
	"github.com/easeaico/companion-engine/internal/types"
)

// QuestResult is the outcome of a quest submission.
type QuestResult struct {
	Success        bool   `json:"success"`
	Outcome        string `json:"outcome"`
	RewardGranted  int    `json:"rewardGranted"`
	Feedback       string `json:"feedback"`
	AffectionLevel int    `json:"affectionLevel"`
	LeveledUp      bool   `json:"leveledUp"`
}

// GenerateQuest returns the pair's active quest, creating one when none is
// held. A record holds at most one active quest.
func (s *Service) GenerateQuest(ctx context.Context, userID, characterID, characterName, personality string) (*types.Quest, error) {
	record, err := s.loadOrInitRecord(ctx, userID, characterID)
	if err != nil {
		return nil, apperr.Store("get relationship", err)
	}
	if record.ActiveQuest != nil {
		return record.ActiveQuest, nil
	}

	record.ActiveQuest = s.quests.Generate(characterName, personality, record.AffectionLevel)
	if err := s.store.UpsertRelationship(ctx, record); err != nil {
		return nil, apperr.Store("set active quest", err)
	}
	return record.ActiveQuest, nil
}

// SubmitQuest grades the answer, moves the quest into quest_progress, clears
// the active slot, and applies the earned affection.
func (s *Service) SubmitQuest(ctx context.Context, userID, characterID, answer string) (*QuestResult, error) {
	record, err := s.loadOrInitRecord(ctx, userID, characterID)
	if err != nil {
		return nil, apperr.Store("get relationship", err)
	}
	if record.ActiveQuest == nil {
		return nil, apperr.Validation("no active quest for this pair")
	}

	active := record.ActiveQuest
	graded := s.quests.Validate(answer, active)

	record.QuestProgress = append(record.QuestProgress, types.QuestAttempt{
		QuestID:     active.ID,
		Type:        active.Type,
		Answer:      answer,
		Success:     graded.Success,
		Reward:      graded.RewardGranted,
		AttemptedAt: s.nowFunc(),
	})
	record.ActiveQuest = nil

	source := affection.SourceQuestComplete
	if !graded.Success {
		source = affection.SourceQuestAttempt
	}
	updated, err := s.affection.Update(ctx, record, graded.RewardGranted, source)
	if err != nil {
		return nil, apperr.Store("apply quest reward", err)
	}

	return &QuestResult{
		Success:        graded.Success,
		Outcome:        graded.Outcome,
		RewardGranted:  graded.RewardGranted,
		Feedback:       graded.Feedback,
		AffectionLevel: updated.NewLevel,
		LeveledUp:      updated.LeveledUp,
	}, nil
}

// QuestHint returns the requested hint for the active quest. The second
// return is false once hints are exhausted; the caller tracks the index.
func (s *Service) QuestHint(ctx context.Context, userID, characterID string, hintIndex int) (string, bool, error) {
	record, err := s.loadOrInitRecord(ctx, userID, characterID)
	if err != nil {
		return "", false, apperr.Store("get relationship", err)
	}
	if record.ActiveQuest == nil {
		return "", false, apperr.Validation("no active quest for this pair")
	}
	hint, ok := s.quests.Hint(record.ActiveQuest, hintIndex)
	return hint, ok, nil
}

// AffectionStatus returns the current relationship record for the pair.
func (s *Service) AffectionStatus(ctx context.Context, userID, characterID string) (*types.RelationshipRecord, error) {
	record, err := s.loadOrInitRecord(ctx, userID, characterID)
	if err != nil {
		return nil, apperr.Store("get relationship", err)
	}
	return record, nil
}

// AddAffection applies a manual point update, as used by the hosting
// application's affection endpoints.
func (s *Service) AddAffection(ctx context.Context, userID, characterID string, points int) (affection.Result, error) {
	if points < 0 {
		return affection.Result{}, apperr.Validation("points must be non-negative")
	}
	record, err := s.loadOrInitRecord(ctx, userID, characterID)
	if err != nil {
		return affection.Result{}, apperr.Store("get relationship", err)
	}
	result, err := s.affection.Update(ctx, record, points, affection.SourceManual)
	if err != nil {
		return affection.Result{}, fmt.Errorf("failed to add affection: %w", err)
	}
	return result, nil
}
