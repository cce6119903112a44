// Package quest generates and grades small companion challenges.
package quest

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/easeaico/companion-engine/internal/affection"
	"github.com/easeaico/companion-engine/internal/types"
)

// Offer probability parameters.
const (
	MinSessionMessages = 5
	baseOfferPercent   = 10
	maxOfferPercent    = 40
)

// closeMatchRewardPercent is granted for near-miss answers.
const closeMatchRewardPercent = 80

// Engine draws quests from the fixed banks and grades answers.
type Engine struct {
	rng     *rand.Rand
	nowFunc func() time.Time
	idFunc  func() string
}

// NewEngine returns a quest engine seeded from the clock.
func NewEngine() *Engine {
	return &Engine{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		nowFunc: time.Now,
		idFunc:  func() string { return uuid.NewString() },
	}
}

// Generate draws a quest, weighting the type distribution by affection level:
// riddles and word games dominate early, trivia joins from level 100, and
// personality quizzes become possible above 500.
func (e *Engine) Generate(characterName, personality string, affectionLevel int) *types.Quest {
	questTypes := []string{types.QuestRiddle, types.QuestWordGame}
	if affectionLevel >= 100 {
		questTypes = append(questTypes, types.QuestTrivia)
	}
	if affectionLevel > 500 {
		questTypes = append(questTypes, types.QuestPersonalityQuiz)
	}

	questType := questTypes[e.rng.Intn(len(questTypes))]
	bank := questBank[questType]
	entry := bank[e.rng.Intn(len(bank))]

	prompt := entry.Prompt
	if questType == types.QuestPersonalityQuiz && characterName != "" {
		prompt = fmt.Sprintf("%s leans in: %q", characterName, entry.Prompt)
	}

	return &types.Quest{
		ID:            e.idFunc(),
		Type:          questType,
		Prompt:        prompt,
		Solution:      entry.Solution,
		Hints:         entry.Hints,
		Difficulty:    entry.Difficulty,
		Reward:        affection.QuestReward(entry.Difficulty),
		AttemptReward: affection.QuestAttemptReward(entry.Difficulty),
		StartedAt:     e.nowFunc(),
	}
}

// Outcome categories for grading.
const (
	OutcomeExact = "exact"
	OutcomeClose = "close"
	OutcomeFail  = "fail"
)

// GradeResult is the outcome of validating an answer.
type GradeResult struct {
	Success       bool
	Outcome       string
	RewardGranted int
	Feedback      string
}

// Validate grades an answer against the quest solution. Personality quizzes
// always succeed. Other types accept an exact normalized match for the full
// reward, a close match (edit distance within 20% of the solution length, or
// containment either way) for 80% of it, and otherwise grant the attempt
// reward.
func (e *Engine) Validate(answer string, q *types.Quest) GradeResult {
	if q == nil {
		return GradeResult{Outcome: OutcomeFail, Feedback: "There is no active quest to answer."}
	}

	if q.Type == types.QuestPersonalityQuiz {
		return GradeResult{
			Success:       true,
			Outcome:       OutcomeExact,
			RewardGranted: q.Reward,
			Feedback:      "I loved hearing that. Thank you for sharing it with me.",
		}
	}

	normalizedAnswer := normalize(answer)
	normalizedSolution := normalize(q.Solution)

	if normalizedAnswer == normalizedSolution {
		return GradeResult{
			Success:       true,
			Outcome:       OutcomeExact,
			RewardGranted: q.Reward,
			Feedback:      "Exactly right! I knew you would get it.",
		}
	}

	distance := levenshtein.ComputeDistance(normalizedAnswer, normalizedSolution)
	contains := normalizedAnswer != "" &&
		(strings.Contains(normalizedAnswer, normalizedSolution) || strings.Contains(normalizedSolution, normalizedAnswer))
	if distance <= len(normalizedSolution)*20/100 || contains {
		return GradeResult{
			Success:       true,
			Outcome:       OutcomeClose,
			RewardGranted: q.Reward * closeMatchRewardPercent / 100,
			Feedback:      fmt.Sprintf("So close! The answer was %q — I'm counting that.", q.Solution),
		}
	}

	return GradeResult{
		Success:       false,
		Outcome:       OutcomeFail,
		RewardGranted: q.AttemptReward,
		Feedback:      fmt.Sprintf("Not quite — the answer was %q. I still enjoyed watching you try.", q.Solution),
	}
}

// Hint returns the hint at hintIndex. The caller tracks how many hints have
// been shown; quest state is never mutated here.
func (e *Engine) Hint(q *types.Quest, hintIndex int) (string, bool) {
	if q == nil || hintIndex < 0 || hintIndex >= len(q.Hints) {
		return "", false
	}
	return q.Hints[hintIndex], true
}

// ShouldOffer rolls for a quest offer. The probability starts at 10%, gains
// fixed steps at affection thresholds (200/500/800) and 5 points per 10
// session messages, capped at 40%.
func (e *Engine) ShouldOffer(affectionLevel, sessionMessageCount int) bool {
	if sessionMessageCount < MinSessionMessages {
		return false
	}
	return e.rng.Intn(100) < OfferPercent(affectionLevel, sessionMessageCount)
}

// OfferPercent computes the offer probability in whole percent.
func OfferPercent(affectionLevel, sessionMessageCount int) int {
	percent := baseOfferPercent
	for _, threshold := range []int{200, 500, 800} {
		if affectionLevel >= threshold {
			percent += 5
		}
	}
	percent += sessionMessageCount / 10 * 5
	if percent > maxOfferPercent {
		percent = maxOfferPercent
	}
	return percent
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
