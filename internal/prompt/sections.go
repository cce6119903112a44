package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/easeaico/companion-engine/internal/types"
)

// sectionFunc renders one optional persona section. An empty result means the
// section is omitted entirely; missing persona fields are never fabricated.
type sectionFunc func(p *types.PersonaDefinition) string

// personaSections are rendered in this fixed order.
var personaSections = []sectionFunc{
	identitySection,
	traitsSection,
	quirksSection,
	catchphrasesSection,
	rulesSection,
	patternsSection,
	dialoguesSection,
	greetingSection,
}

// RenderPersona builds the deterministic persona system message, followed by
// the response-style instructions and the mood directive.
func RenderPersona(p *types.PersonaDefinition, mood, customInstructions string) string {
	var sections []string
	for _, render := range personaSections {
		if s := render(p); s != "" {
			sections = append(sections, s)
		}
	}

	sections = append(sections,
		"Stay in character at all times. Reply naturally and warmly in a few sentences; never produce lists or mechanical phrasing, and never mention being an AI.")

	if customInstructions != "" {
		sections = append(sections, customInstructions)
	}
	if mood != "" {
		sections = append(sections, fmt.Sprintf("Your current mood is %s. Let it color your tone.", mood))
	}
	return strings.Join(sections, "\n\n")
}

func identitySection(p *types.PersonaDefinition) string {
	var lines []string
	if p.Name != "" {
		lines = append(lines, fmt.Sprintf("You are %s.", p.Name))
	}
	if p.Identity != "" {
		lines = append(lines, p.Identity)
	}
	if p.Role != "" {
		lines = append(lines, fmt.Sprintf("Role: %s", p.Role))
	}
	if p.Description != "" {
		lines = append(lines, p.Description)
	}
	return strings.Join(lines, "\n")
}

func traitsSection(p *types.PersonaDefinition) string {
	var lines []string
	if len(p.Traits) > 0 {
		lines = append(lines, fmt.Sprintf("Personality traits: %s.", strings.Join(p.Traits, ", ")))
	}
	if p.Background != "" {
		lines = append(lines, fmt.Sprintf("Background: %s", p.Background))
	}
	if len(p.Interests) > 0 {
		lines = append(lines, fmt.Sprintf("Interests: %s.", strings.Join(p.Interests, ", ")))
	}
	if p.SpeakingStyle != "" {
		lines = append(lines, fmt.Sprintf("Speaking style: %s", p.SpeakingStyle))
	}
	return strings.Join(lines, "\n")
}

func quirksSection(p *types.PersonaDefinition) string {
	if len(p.Quirks) == 0 {
		return ""
	}
	return fmt.Sprintf("Quirks: %s.", strings.Join(p.Quirks, "; "))
}

func catchphrasesSection(p *types.PersonaDefinition) string {
	if len(p.Catchphrases) == 0 {
		return ""
	}
	return fmt.Sprintf("Catchphrases you sometimes use: %s.", strings.Join(p.Catchphrases, " / "))
}

func rulesSection(p *types.PersonaDefinition) string {
	var lines []string
	for _, rule := range p.MustDo {
		lines = append(lines, "- Always: "+rule)
	}
	for _, rule := range p.MustNotDo {
		lines = append(lines, "- Never: "+rule)
	}
	if len(lines) == 0 {
		return ""
	}
	return "Behavioral rules:\n" + strings.Join(lines, "\n")
}

func patternsSection(p *types.PersonaDefinition) string {
	if len(p.BehaviorPatterns) == 0 {
		return ""
	}
	emotions := make([]string, 0, len(p.BehaviorPatterns))
	for emotion := range p.BehaviorPatterns {
		emotions = append(emotions, emotion)
	}
	sort.Strings(emotions)

	var lines []string
	for _, emotion := range emotions {
		lines = append(lines, fmt.Sprintf("- When %s: %s", emotion, p.BehaviorPatterns[emotion]))
	}
	return "How you behave by emotion:\n" + strings.Join(lines, "\n")
}

func dialoguesSection(p *types.PersonaDefinition) string {
	if len(p.ExampleDialogues) == 0 {
		return ""
	}
	var lines []string
	for _, d := range p.ExampleDialogues {
		lines = append(lines, fmt.Sprintf("User: %s\n%s: %s", d.User, p.Name, d.Reply))
	}
	return "Example dialogue:\n" + strings.Join(lines, "\n")
}

func greetingSection(p *types.PersonaDefinition) string {
	if p.Greeting == "" {
		return ""
	}
	return fmt.Sprintf("Your usual greeting: %q", p.Greeting)
}
