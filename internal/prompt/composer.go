// Package prompt assembles the layered, token-budgeted chat prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/easeaico/companion-engine/internal/models"
	"github.com/easeaico/companion-engine/internal/types"
)

// Token budget constants. Token costs are estimated as one token per
// charsPerToken characters, integer division; no real tokenizer is involved.
const (
	InputBudget           = 3200
	ReservedForCompletion = 400
	charsPerToken         = 4
)

// RelationshipContext carries the affection and memory state rendered into
// the second system message.
type RelationshipContext struct {
	TierDirective string
	Status        string
	TotalMessages int
	Facts         []string
}

// Context contains all inputs for prompt assembly.
type Context struct {
	Persona            *types.PersonaDefinition
	Mood               string
	CustomInstructions string
	Relationship       *RelationshipContext
	History            []models.Message
	CurrentMessage     string
}

// Composer assembles layered prompts within the input budget.
type Composer struct {
	inputBudget           int
	reservedForCompletion int
}

// NewComposer creates a prompt Composer with the default budget.
func NewComposer() *Composer {
	return &Composer{
		inputBudget:           InputBudget,
		reservedForCompletion: ReservedForCompletion,
	}
}

// EstimateTokens approximates the token cost of a string.
func EstimateTokens(s string) int {
	return len(s) / charsPerToken
}

// Prompt is the layered output consumed by the gateway.
type Prompt struct {
	PersonaPrompt  string
	MemoryPrompt   string
	History        []models.Message
	CurrentMessage string
}

// Compose builds the layered prompt: the persona system message, an optional
// relationship/memory system message, prior turns fitted newest-first into
// the remaining budget, and the current user turn, which is always included.
func (c *Composer) Compose(ctx Context) (*Prompt, error) {
	if ctx.Persona == nil {
		return nil, fmt.Errorf("persona is required")
	}
	if strings.TrimSpace(ctx.CurrentMessage) == "" {
		return nil, fmt.Errorf("current message is required")
	}

	personaPrompt := RenderPersona(ctx.Persona, ctx.Mood, ctx.CustomInstructions)
	allowance := c.inputBudget - c.reservedForCompletion - EstimateTokens(personaPrompt)

	var memoryPrompt string
	if ctx.Relationship != nil {
		memoryPrompt = renderRelationship(ctx.Relationship)
		allowance -= EstimateTokens(memoryPrompt)
	}
	allowance -= EstimateTokens(ctx.CurrentMessage)

	return &Prompt{
		PersonaPrompt:  personaPrompt,
		MemoryPrompt:   memoryPrompt,
		History:        fitHistory(ctx.History, allowance),
		CurrentMessage: ctx.CurrentMessage,
	}, nil
}

// Messages flattens the prompt into the chat message list.
func (p *Prompt) Messages() []models.Message {
	messages := make([]models.Message, 0, len(p.History)+3)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: p.PersonaPrompt})
	if p.MemoryPrompt != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: p.MemoryPrompt})
	}
	messages = append(messages, p.History...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: p.CurrentMessage})
	return messages
}

// fitHistory walks prior turns from most recent to oldest, keeping each turn
// only while its estimated cost fits the remaining allowance. Older turns are
// dropped whole, never truncated.
func fitHistory(history []models.Message, allowance int) []models.Message {
	var kept []models.Message
	for i := len(history) - 1; i >= 0; i-- {
		cost := EstimateTokens(history[i].Content)
		if cost > allowance {
			break
		}
		allowance -= cost
		kept = append(kept, history[i])
	}
	// Restore chronological order.
	for left, right := 0, len(kept)-1; left < right; left, right = left+1, right-1 {
		kept[left], kept[right] = kept[right], kept[left]
	}
	return kept
}

func renderRelationship(rc *RelationshipContext) string {
	var sections []string
	if rc.TierDirective != "" {
		sections = append(sections, rc.TierDirective)
	}
	if len(rc.Facts) > 0 {
		var b strings.Builder
		b.WriteString("Things you remember about this person:\n")
		for _, fact := range rc.Facts {
			b.WriteString("- ")
			b.WriteString(fact)
			b.WriteString("\n")
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}
	if rc.Status != "" {
		sections = append(sections, fmt.Sprintf(
			"Relationship summary: status %s after %d messages together.",
			rc.Status, rc.TotalMessages))
	}
	return strings.Join(sections, "\n\n")
}
