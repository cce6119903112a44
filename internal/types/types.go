// Package types holds the shared data model of the engagement engine.
package types

import "time"

// Message roles as stored in conversation history.
const (
	RoleUser    = "user"
	RoleThought = "ai_thought"
	RoleSpeech  = "ai_speech"
)

// RelationshipRecord is the persisted state for one (user, character) pair.
type RelationshipRecord struct {
	UserID      string `json:"user_id"`
	CharacterID string `json:"character_id"`
	// AffectionLevel is the raw score, 0-1000, non-decreasing under normal
	// operation.
	AffectionLevel int `json:"affection_level"`
	// AffectionVisibleLevel is the derived tier (1-5). Always recomputed from
	// AffectionLevel, never updated independently.
	AffectionVisibleLevel int            `json:"affection_visible_level"`
	RelationshipStatus    string         `json:"relationship_status"`
	RememberedFacts       []string       `json:"remembered_facts"`
	TotalMessages         int            `json:"total_messages"`
	LastInteractionAt     time.Time      `json:"last_interaction_at"`
	ActiveQuest           *Quest         `json:"active_quest,omitempty"`
	QuestProgress         []QuestAttempt `json:"quest_progress"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// ConversationMessage is one stored chat turn. Append-only. Proactive marks
// scheduler-initiated speech so cooldown checks ignore ordinary replies.
type ConversationMessage struct {
	ID          int       `json:"id"`
	UserID      string    `json:"user_id"`
	CharacterID string    `json:"character_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Proactive   bool      `json:"proactive,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Quest types.
const (
	QuestRiddle          = "riddle"
	QuestTrivia          = "trivia"
	QuestWordGame        = "word_game"
	QuestPersonalityQuiz = "personality_quiz"
)

// Quest difficulties.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Quest is a small gradeable challenge held as active_quest until answered.
type Quest struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
	// Solution is empty for personality quizzes, which always succeed.
	Solution      string    `json:"solution,omitempty"`
	Hints         []string  `json:"hints"`
	Difficulty    string    `json:"difficulty"`
	Reward        int       `json:"reward"`
	AttemptReward int       `json:"attempt_reward"`
	StartedAt     time.Time `json:"started_at"`
}

// QuestAttempt is one entry of the append-only quest_progress list.
type QuestAttempt struct {
	QuestID     string    `json:"quest_id"`
	Type        string    `json:"type"`
	Answer      string    `json:"answer"`
	Success     bool      `json:"success"`
	Reward      int       `json:"reward"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// DialogueExample is one user/reply pair of example dialogue.
type DialogueExample struct {
	User  string `json:"user"`
	Reply string `json:"reply"`
}

// PersonaDefinition is the static character profile. Immutable input to the
// prompt composer; owned by the character catalog.
type PersonaDefinition struct {
	Name          string   `json:"name"`
	Identity      string   `json:"identity"`
	Role          string   `json:"role"`
	Description   string   `json:"description"`
	Traits        []string `json:"traits"`
	Background    string   `json:"background"`
	Interests     []string `json:"interests"`
	SpeakingStyle string   `json:"speaking_style"`
	Quirks        []string `json:"quirks"`
	Catchphrases  []string `json:"catchphrases"`
	MustDo        []string `json:"must_do"`
	MustNotDo     []string `json:"must_not_do"`
	// BehaviorPatterns maps an emotion name to how the character behaves in it.
	BehaviorPatterns map[string]string `json:"behavior_patterns"`
	ExampleDialogues []DialogueExample `json:"example_dialogues"`
	Greeting         string            `json:"greeting"`
}
