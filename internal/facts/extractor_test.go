package facts

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestExtractNameAndLikes(t *testing.T) {
	got := ExtractFacts("My name is Alex and I love hiking", nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 facts, got %#v", got)
	}
	if got[0] != "User's name is Alex" {
		t.Fatalf("unexpected name fact: %q", got[0])
	}
	if got[1] != "User likes hiking" {
		t.Fatalf("unexpected likes fact: %q", got[1])
	}

	again := ExtractFacts("My name is Alex and I love hiking", got)
	if len(again) != 0 {
		t.Fatalf("expected no new facts on repeat, got %#v", again)
	}
}

func TestExtractOccupationEmotionLocation(t *testing.T) {
	got := ExtractFacts("I work as a nurse. I live in Osaka and I'm feeling tired", nil)
	want := map[string]bool{
		"User works as a nurse":  true,
		"User lives in Osaka":    true,
		"User was feeling tired": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d facts, got %#v", len(want), got)
	}
	for _, fact := range got {
		if !want[fact] {
			t.Fatalf("unexpected fact: %q (all: %#v)", fact, got)
		}
	}
}

func TestExtractPossession(t *testing.T) {
	got := ExtractFacts("I have a golden retriever", nil)
	if len(got) != 1 || got[0] != "User has a golden retriever" {
		t.Fatalf("unexpected facts: %#v", got)
	}
}

func TestNearDuplicateContainment(t *testing.T) {
	existing := []string{"User likes hiking in the mountains"}
	got := ExtractFacts("I like hiking", existing)
	if len(got) != 0 {
		t.Fatalf("expected containment to suppress duplicate, got %#v", got)
	}
}

func TestDuplicateSuppressionIsCaseInsensitive(t *testing.T) {
	existing := []string{"user likes HIKING"}
	got := ExtractFacts("I love hiking", existing)
	if len(got) != 0 {
		t.Fatalf("expected case-insensitive duplicate suppression, got %#v", got)
	}
}

func TestExtractEmptyMessage(t *testing.T) {
	if got := ExtractFacts("   ", nil); got != nil {
		t.Fatalf("expected nil for blank message, got %#v", got)
	}
}

func TestAppendCapsAtMaxFacts(t *testing.T) {
	var existing []string
	for i := 0; i < MaxFacts; i++ {
		existing = append(existing, fmt.Sprintf("fact %02d", i))
	}
	merged := Append(existing, []string{"newest fact"})
	if len(merged) != MaxFacts {
		t.Fatalf("expected %d facts, got %d", MaxFacts, len(merged))
	}
	if merged[len(merged)-1] != "newest fact" {
		t.Fatalf("expected newest fact last, got %q", merged[len(merged)-1])
	}
	if merged[0] != "fact 01" {
		t.Fatalf("expected oldest fact dropped, got %q first", merged[0])
	}
}

func TestUserName(t *testing.T) {
	facts := []string{"User likes tea", "User's name is Mina"}
	name, ok := UserName(facts)
	if !ok || name != "Mina" {
		t.Fatalf("unexpected name lookup: %q %v", name, ok)
	}
	if _, ok := UserName([]string{"User likes tea"}); ok {
		t.Fatal("expected no name")
	}
}

func TestContextualGreetingBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	facts := []string{"User's name is Mina", "User likes tea"}

	if _, ok := ContextualGreeting(nil, now.Add(-time.Hour), now); ok {
		t.Fatal("expected no greeting without facts")
	}

	greeting, ok := ContextualGreeting(facts, now.Add(-48*time.Hour), now)
	if !ok || !strings.Contains(greeting, "you told me you like tea") {
		t.Fatalf("unexpected long-gap greeting: %q", greeting)
	}

	greeting, ok = ContextualGreeting(facts, now.Add(-3*time.Hour), now)
	if !ok || !strings.Contains(greeting, "Mina") {
		t.Fatalf("unexpected mid-gap greeting: %q", greeting)
	}

	greeting, ok = ContextualGreeting(facts, now.Add(-10*time.Minute), now)
	if !ok || !strings.Contains(greeting, "Back already") {
		t.Fatalf("unexpected short-gap greeting: %q", greeting)
	}
}
