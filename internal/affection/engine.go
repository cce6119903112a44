// Package affection implements the relationship scoring state machine.
package affection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/types"
)

// Bonus and reward amounts.
const (
	MessageGain        = 1
	DailyBonus         = 3
	LongSessionBonus   = 2
	ReturningBonus     = 2
	dailyBonusGapHours = 20

	// LongSessionThreshold is the session message count at which the
	// long-session bonus is granted once.
	LongSessionThreshold = 30
	// ReturningGap is the inactivity gap that triggers the returning bonus.
	ReturningGap = 72 * time.Hour
)

var questRewards = map[string]int{
	types.DifficultyEasy:   3,
	types.DifficultyMedium: 5,
	types.DifficultyHard:   8,
}

var questAttemptRewards = map[string]int{
	types.DifficultyEasy:   1,
	types.DifficultyMedium: 1,
	types.DifficultyHard:   2,
}

// QuestReward returns the completion reward for a difficulty.
func QuestReward(difficulty string) int {
	if r, ok := questRewards[difficulty]; ok {
		return r
	}
	return questRewards[types.DifficultyEasy]
}

// QuestAttemptReward returns the consolation reward for a failed attempt.
func QuestAttemptReward(difficulty string) int {
	if r, ok := questAttemptRewards[difficulty]; ok {
		return r
	}
	return questAttemptRewards[types.DifficultyEasy]
}

// Store persists relationship records.
type Store interface {
	UpsertRelationship(ctx context.Context, record *types.RelationshipRecord) error
}

// Result describes the outcome of an affection update.
type Result struct {
	PointsGained int
	NewLevel     int
	NewTier      int
	LeveledUp    bool
}

// Engine applies affection gains and persists the result.
type Engine struct {
	store   Store
	log     zerolog.Logger
	nowFunc func() time.Time
}

// NewEngine returns an affection engine backed by the given store.
func NewEngine(store Store, log zerolog.Logger) *Engine {
	return &Engine{
		store:   store,
		log:     log.With().Str("component", "affection").Logger(),
		nowFunc: time.Now,
	}
}

// Update applies pointsGained to the record, recomputes the tier and status,
// and persists the record with a single upsert.
func (e *Engine) Update(ctx context.Context, record *types.RelationshipRecord, pointsGained int, source GainSource) (Result, error) {
	if record == nil {
		return Result{}, fmt.Errorf("relationship record is required")
	}
	if pointsGained < 0 {
		return Result{}, fmt.Errorf("points gained cannot be negative: %d", pointsGained)
	}

	oldTier := TierOf(record.AffectionLevel)
	record.AffectionLevel = ClampLevel(record.AffectionLevel + pointsGained)
	record.AffectionVisibleLevel = TierOf(record.AffectionLevel)
	record.RelationshipStatus = StatusFor(record.AffectionVisibleLevel)

	result := Result{
		PointsGained: pointsGained,
		NewLevel:     record.AffectionLevel,
		NewTier:      record.AffectionVisibleLevel,
		LeveledUp:    record.AffectionVisibleLevel > oldTier,
	}

	if err := e.store.UpsertRelationship(ctx, record); err != nil {
		return Result{}, fmt.Errorf("failed to persist affection update: %w", err)
	}

	e.log.Debug().
		Str("user", record.UserID).
		Str("character", record.CharacterID).
		Str("source", string(source)).
		Int("points", pointsGained).
		Int("level", result.NewLevel).
		Bool("leveled_up", result.LeveledUp).
		Msg("affection updated")
	return result, nil
}

// DailyBonusEligible reports whether the rolling daily bonus applies.
// Eligibility is derived from the last interaction timestamp each time, not
// from an "already granted" flag.
func (e *Engine) DailyBonusEligible(lastInteractionAt time.Time) bool {
	if lastInteractionAt.IsZero() {
		return false
	}
	return e.nowFunc().Sub(lastInteractionAt) >= dailyBonusGapHours*time.Hour
}

// ReturningBonusEligible reports whether the returning-after-inactivity bonus
// applies.
func (e *Engine) ReturningBonusEligible(lastInteractionAt time.Time) bool {
	if lastInteractionAt.IsZero() {
		return false
	}
	return e.nowFunc().Sub(lastInteractionAt) >= ReturningGap
}

// TurnGain computes the total gain for one chat turn: the per-message point
// plus whichever session bonuses are due.
func (e *Engine) TurnGain(record *types.RelationshipRecord, sessionMessageCount int) (int, []GainSource) {
	points := MessageGain
	sources := []GainSource{SourceMessage}

	if e.DailyBonusEligible(record.LastInteractionAt) {
		points += DailyBonus
		sources = append(sources, SourceDailyBonus)
	}
	if e.ReturningBonusEligible(record.LastInteractionAt) {
		points += ReturningBonus
		sources = append(sources, SourceReturning)
	}
	if sessionMessageCount == LongSessionThreshold {
		points += LongSessionBonus
		sources = append(sources, SourceLongSession)
	}
	return points, sources
}
