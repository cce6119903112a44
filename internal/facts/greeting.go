package facts

import (
	"fmt"
	"strings"
	"time"
)

// ContextualGreeting picks a greeting based on elapsed time since the last
// interaction, referencing remembered facts where possible. Returns false when
// no facts exist; the caller falls back to the persona's static greeting.
func ContextualGreeting(facts []string, lastInteractionAt, now time.Time) (string, bool) {
	if len(facts) == 0 {
		return "", false
	}

	elapsed := now.Sub(lastInteractionAt)
	name, hasName := UserName(facts)
	recent := secondPerson(facts[len(facts)-1])

	switch {
	case lastInteractionAt.IsZero() || elapsed > 24*time.Hour:
		return fmt.Sprintf("It's been a while! Last time %s — I haven't forgotten.", recent), true
	case elapsed >= time.Hour:
		if hasName {
			return fmt.Sprintf("Welcome back, %s! I was hoping you'd stop by again today.", name), true
		}
		return "Welcome back! I was hoping you'd stop by again today.", true
	default:
		return "Back already? I like that. We were just getting to the good part.", true
	}
}

// secondPerson rewrites a stored fact into second person for use in a
// greeting sentence.
func secondPerson(fact string) string {
	replacements := [][2]string{
		{"User's name is", "you told me your name is"},
		{"User likes", "you told me you like"},
		{"User was feeling", "you were feeling"},
		{"User works as", "you told me you work as"},
		{"User has", "you told me you have"},
		{"User lives in", "you told me you live in"},
	}
	for _, r := range replacements {
		if strings.HasPrefix(fact, r[0]) {
			return r[1] + strings.TrimPrefix(fact, r[0])
		}
	}
	return "you told me " + fact
}
