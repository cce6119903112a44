// Package facts derives durable user facts from freeform chat messages.
package facts

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxFacts caps the remembered fact list; oldest entries are dropped first.
const MaxFacts = 20

// extractorRule pairs a matcher with a transformer producing one fact string.
type extractorRule struct {
	name    string
	pattern *regexp.Regexp
	render  func(groups []string) string
}

// Rules are evaluated in order; each yields zero or one candidate fact.
var rules = []extractorRule{
	{
		name:    "name",
		pattern: regexp.MustCompile(`(?i)\b(?:my name is|i'm called|call me) ([A-Za-z][\w'-]*)`),
		render: func(groups []string) string {
			return fmt.Sprintf("User's name is %s", groups[1])
		},
	},
	{
		name:    "likes",
		pattern: regexp.MustCompile(`(?i)\bi (?:really )?(?:love|like|enjoy) (.+?)(?:[.,!?;]|\band\b|$)`),
		render: func(groups []string) string {
			return fmt.Sprintf("User likes %s", strings.TrimSpace(groups[1]))
		},
	},
	{
		name:    "emotion",
		pattern: regexp.MustCompile(`(?i)\b(?:i am|i'm|i) feel(?:ing)? ([A-Za-z]+)`),
		render: func(groups []string) string {
			return fmt.Sprintf("User was feeling %s", strings.ToLower(groups[1]))
		},
	},
	{
		name:    "occupation",
		pattern: regexp.MustCompile(`(?i)\b(?:i work as|i am|i'm) (a|an) ([a-z][a-z /-]{2,40}?)(?:[.,!?;]|$)`),
		render: func(groups []string) string {
			return fmt.Sprintf("User works as %s %s", strings.ToLower(groups[1]), strings.TrimSpace(groups[2]))
		},
	},
	{
		name:    "possession",
		pattern: regexp.MustCompile(`(?i)\bi have (a|an|two|three|some) (.+?)(?:[.,!?;]|\band\b|$)`),
		render: func(groups []string) string {
			return fmt.Sprintf("User has %s %s", strings.ToLower(groups[1]), strings.TrimSpace(groups[2]))
		},
	},
	{
		name:    "location",
		pattern: regexp.MustCompile(`(?i)\bi (?:live in|am from|'m from) (.+?)(?:[.,!?;]|\band\b|$)`),
		render: func(groups []string) string {
			return fmt.Sprintf("User lives in %s", strings.TrimSpace(groups[1]))
		},
	},
}

// ExtractFacts runs the rule list over a message and returns candidate facts
// that are not near-duplicates of existing ones. No side effects; the caller
// persists the merged list separately.
func ExtractFacts(message string, existingFacts []string) []string {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	var accepted []string
	for _, rule := range rules {
		groups := rule.pattern.FindStringSubmatch(message)
		if groups == nil {
			continue
		}
		candidate := rule.render(groups)
		if candidate == "" {
			continue
		}
		if isNearDuplicate(candidate, existingFacts) || isNearDuplicate(candidate, accepted) {
			continue
		}
		accepted = append(accepted, candidate)
	}
	return accepted
}

// Append merges new facts into the list and truncates to the most recent
// MaxFacts entries.
func Append(existing, newFacts []string) []string {
	merged := append(append([]string{}, existing...), newFacts...)
	if len(merged) > MaxFacts {
		merged = merged[len(merged)-MaxFacts:]
	}
	return merged
}

// isNearDuplicate reports case-insensitive equality or substring containment
// in either direction. No richer semantic similarity is attempted.
func isNearDuplicate(candidate string, facts []string) bool {
	lower := strings.ToLower(candidate)
	for _, fact := range facts {
		known := strings.ToLower(fact)
		if lower == known || strings.Contains(known, lower) || strings.Contains(lower, known) {
			return true
		}
	}
	return false
}

// UserName returns the name recorded by the name rule, if any.
func UserName(facts []string) (string, bool) {
	const prefix = "User's name is "
	for i := len(facts) - 1; i >= 0; i-- {
		if strings.HasPrefix(facts[i], prefix) {
			return strings.TrimPrefix(facts[i], prefix), true
		}
	}
	return "", false
}
