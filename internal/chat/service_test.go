package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/affection"
	"github.com/easeaico/companion-engine/internal/apperr"
	"github.com/easeaico/companion-engine/internal/gateway"
	"github.com/easeaico/companion-engine/internal/models"
	"github.com/easeaico/companion-engine/internal/quest"
	"github.com/easeaico/companion-engine/internal/types"
)

type fakeStore struct {
	records    map[string]*types.RelationshipRecord
	messages   []*types.ConversationMessage
	getErr     error
	upsertErr  error
	appendErr  error
	upsertCall int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*types.RelationshipRecord{}}
}

func pairKey(userID, characterID string) string {
	return userID + "|" + characterID
}

func (s *fakeStore) GetRelationship(_ context.Context, userID, characterID string) (*types.RelationshipRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[pairKey(userID, characterID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) UpsertRelationship(_ context.Context, record *types.RelationshipRecord) error {
	s.upsertCall++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	cp := *record
	s.records[pairKey(record.UserID, record.CharacterID)] = &cp
	return nil
}

func (s *fakeStore) AppendMessage(_ context.Context, msg *types.ConversationMessage) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.messages = append(s.messages, msg)
	return nil
}

type scriptedProvider struct {
	responses []*models.CompletionResponse
	errs      []error
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, _ *models.CompletionRequest) (*models.CompletionResponse, error) {
	call := p.calls
	p.calls++
	if call < len(p.errs) && p.errs[call] != nil {
		return nil, p.errs[call]
	}
	if call < len(p.responses) {
		return p.responses[call], nil
	}
	return &models.CompletionResponse{Content: "ok", FinishReason: models.FinishStop}, nil
}

func testPersona() *types.PersonaDefinition {
	return &types.PersonaDefinition{
		Name:     "Mina",
		Identity: "a cheerful companion",
		Greeting: "Hey you~",
	}
}

func newTestService(store *fakeStore, provider models.Provider) *Service {
	gw := gateway.New(provider, gateway.NewAdmissionController(10), nil, time.Second, zerolog.Nop())
	svc := NewService(store, gw, affection.NewEngine(store, zerolog.Nop()), quest.NewEngine(), zerolog.Nop())
	svc.dispatch = func(fn func()) { fn() }
	return svc
}

func turnRequest(question string, history []models.Message) *Request {
	return &Request{
		UserID:              "u1",
		CharacterID:         "c1",
		Question:            question,
		ModelName:           "gpt-test",
		Mood:                "cheerful",
		ConversationHistory: history,
		Character:           testPersona(),
	}
}

func TestHandleTurnValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), &scriptedProvider{})

	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing user", func(r *Request) { r.UserID = "" }},
		{"missing character id", func(r *Request) { r.CharacterID = " " }},
		{"missing question", func(r *Request) { r.Question = "" }},
		{"missing model", func(r *Request) { r.ModelName = "" }},
		{"missing persona", func(r *Request) { r.Character = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := turnRequest("hi", nil)
			tc.mutate(req)
			_, err := svc.HandleTurn(context.Background(), req)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestHandleTurnFirstTurn(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &scriptedProvider{
		responses: []*models.CompletionResponse{
			{Content: "Nice to meet you, Alex!", FinishReason: models.FinishStop},
		},
	})

	resp, err := svc.HandleTurn(context.Background(), turnRequest("My name is Alex", nil))
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if resp.Answer != "Nice to meet you, Alex!" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if resp.Greeting != "Hey you~" {
		t.Fatalf("expected persona greeting on first turn, got %q", resp.Greeting)
	}
	if resp.AffectionGain == nil || *resp.AffectionGain != 1 {
		t.Fatalf("expected affection gain of 1, got %#v", resp.AffectionGain)
	}
	if resp.AffectionLevel != 1 {
		t.Fatalf("expected level 1, got %d", resp.AffectionLevel)
	}
	if resp.TypingDelay < minTypingDelayMs || resp.TypingDelay > maxTypingDelayMs {
		t.Fatalf("typing delay %d out of bounds", resp.TypingDelay)
	}

	if len(store.messages) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(store.messages))
	}
	if store.messages[0].Role != types.RoleUser || store.messages[1].Role != types.RoleSpeech {
		t.Fatalf("unexpected message roles %q, %q", store.messages[0].Role, store.messages[1].Role)
	}

	rec := store.records[pairKey("u1", "c1")]
	if rec == nil {
		t.Fatal("expected relationship record to be persisted")
	}
	if rec.TotalMessages != 1 {
		t.Fatalf("expected total messages 1, got %d", rec.TotalMessages)
	}
	if len(rec.RememberedFacts) != 1 || rec.RememberedFacts[0] != "User's name is Alex" {
		t.Fatalf("unexpected remembered facts %#v", rec.RememberedFacts)
	}
}

func TestHandleTurnGreetingOnlyOnFirstTurn(t *testing.T) {
	svc := newTestService(newFakeStore(), &scriptedProvider{})

	history := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}
	resp, err := svc.HandleTurn(context.Background(), turnRequest("how are you", history))
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if resp.Greeting != "" {
		t.Fatalf("expected no greeting mid-session, got %q", resp.Greeting)
	}
}

func TestHandleTurnIncognito(t *testing.T) {
	store := newFakeStore()
	store.records[pairKey("u1", "c1")] = &types.RelationshipRecord{
		UserID: "u1", CharacterID: "c1", AffectionLevel: 250, TotalMessages: 40,
	}
	svc := newTestService(store, &scriptedProvider{})

	req := turnRequest("a secret question", nil)
	req.IncognitoMode = true
	resp, err := svc.HandleTurn(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if resp.AffectionGain != nil {
		t.Fatalf("incognito turn granted affection: %#v", resp.AffectionGain)
	}
	if resp.AffectionLevel != 250 {
		t.Fatalf("expected unchanged level 250, got %d", resp.AffectionLevel)
	}
	if resp.QuestTrigger {
		t.Fatal("incognito turn offered a quest")
	}
	if len(store.messages) != 0 {
		t.Fatalf("incognito turn persisted %d messages", len(store.messages))
	}
	if store.records[pairKey("u1", "c1")].TotalMessages != 40 {
		t.Fatal("incognito turn changed the stored record")
	}
}

func TestHandleTurnAnswersDespiteStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("db down")
	store.upsertErr = errors.New("db down")
	store.appendErr = errors.New("db down")
	svc := newTestService(store, &scriptedProvider{
		responses: []*models.CompletionResponse{{Content: "still here", FinishReason: models.FinishStop}},
	})

	resp, err := svc.HandleTurn(context.Background(), turnRequest("hello", nil))
	if err != nil {
		t.Fatalf("expected turn to succeed despite store failure, got %v", err)
	}
	if resp.Answer != "still here" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if resp.AffectionGain != nil {
		t.Fatal("expected gain to be omitted when persistence fails")
	}
}

func TestHandleTurnReadFailureDoesNotClobberStoredState(t *testing.T) {
	store := newFakeStore()
	store.records[pairKey("u1", "c1")] = &types.RelationshipRecord{
		UserID: "u1", CharacterID: "c1",
		AffectionLevel:  500,
		RememberedFacts: []string{"User's name is Alex"},
		TotalMessages:   200,
	}
	// Reads fail but writes would succeed; the turn must not write at all.
	store.getErr = errors.New("db read timeout")
	svc := newTestService(store, &scriptedProvider{})

	resp, err := svc.HandleTurn(context.Background(), turnRequest("hello again", nil))
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if resp.AffectionGain != nil {
		t.Fatalf("expected no gain without a loaded record, got %#v", resp.AffectionGain)
	}
	if store.upsertCall != 0 {
		t.Fatalf("expected no upserts, got %d", store.upsertCall)
	}
	if len(store.messages) != 0 {
		t.Fatalf("expected no persisted messages, got %d", len(store.messages))
	}

	rec := store.records[pairKey("u1", "c1")]
	if rec.AffectionLevel != 500 || rec.TotalMessages != 200 || len(rec.RememberedFacts) != 1 {
		t.Fatalf("stored record was modified: %#v", rec)
	}
}

func TestHandleTurnUpstreamErrorPropagates(t *testing.T) {
	svc := newTestService(newFakeStore(), &scriptedProvider{
		errs: []error{apperr.Upstream(500, errors.New("boom"))},
	})

	_, err := svc.HandleTurn(context.Background(), turnRequest("hello", nil))
	if !apperr.IsKind(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestTypingDelayBounds(t *testing.T) {
	cases := []struct {
		answerLen int
		want      int
	}{
		{0, minTypingDelayMs},
		{10, minTypingDelayMs},
		{60, 1500},
		{400, maxTypingDelayMs},
	}
	for _, tc := range cases {
		got := typingDelay(strings.Repeat("a", tc.answerLen))
		if got != tc.want {
			t.Fatalf("typingDelay(len=%d) = %d, want %d", tc.answerLen, got, tc.want)
		}
	}
}

func TestGenerateQuestKeepsSingleActive(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &scriptedProvider{})

	first, err := svc.GenerateQuest(context.Background(), "u1", "c1", "Mina", "playful")
	if err != nil {
		t.Fatalf("GenerateQuest failed: %v", err)
	}
	if first == nil || first.ID == "" {
		t.Fatalf("expected a quest, got %#v", first)
	}

	second, err := svc.GenerateQuest(context.Background(), "u1", "c1", "Mina", "playful")
	if err != nil {
		t.Fatalf("GenerateQuest failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the existing active quest back, got %q vs %q", second.ID, first.ID)
	}
}

func TestSubmitQuestExact(t *testing.T) {
	store := newFakeStore()
	store.records[pairKey("u1", "c1")] = &types.RelationshipRecord{
		UserID: "u1", CharacterID: "c1",
		ActiveQuest: &types.Quest{
			ID: "q1", Type: types.QuestRiddle, Prompt: "p",
			Solution: "echo", Difficulty: types.DifficultyEasy,
			Reward: 3, AttemptReward: 1,
		},
	}
	svc := newTestService(store, &scriptedProvider{})

	result, err := svc.SubmitQuest(context.Background(), "u1", "c1", "Echo")
	if err != nil {
		t.Fatalf("SubmitQuest failed: %v", err)
	}
	if !result.Success || result.Outcome != quest.OutcomeExact {
		t.Fatalf("expected exact success, got %#v", result)
	}
	if result.RewardGranted != 3 || result.AffectionLevel != 3 {
		t.Fatalf("expected reward 3 at level 3, got %#v", result)
	}

	rec := store.records[pairKey("u1", "c1")]
	if rec.ActiveQuest != nil {
		t.Fatal("expected active quest to be cleared")
	}
	if len(rec.QuestProgress) != 1 {
		t.Fatalf("expected 1 progress entry, got %d", len(rec.QuestProgress))
	}
	attempt := rec.QuestProgress[0]
	if attempt.QuestID != "q1" || !attempt.Success || attempt.Reward != 3 {
		t.Fatalf("unexpected progress entry %#v", attempt)
	}
}

func TestSubmitQuestFailedAttempt(t *testing.T) {
	store := newFakeStore()
	store.records[pairKey("u1", "c1")] = &types.RelationshipRecord{
		UserID: "u1", CharacterID: "c1",
		ActiveQuest: &types.Quest{
			ID: "q1", Type: types.QuestTrivia, Prompt: "p",
			Solution: "jupiter", Difficulty: types.DifficultyMedium,
			Reward: 5, AttemptReward: 1,
		},
	}
	svc := newTestService(store, &scriptedProvider{})

	result, err := svc.SubmitQuest(context.Background(), "u1", "c1", "saturn")
	if err != nil {
		t.Fatalf("SubmitQuest failed: %v", err)
	}
	if result.Success || result.Outcome != quest.OutcomeFail {
		t.Fatalf("expected failure, got %#v", result)
	}
	if result.RewardGranted != 1 || result.AffectionLevel != 1 {
		t.Fatalf("expected attempt reward 1, got %#v", result)
	}
	if !strings.Contains(strings.ToLower(result.Feedback), "jupiter") {
		t.Fatalf("expected feedback to reveal the answer, got %q", result.Feedback)
	}
	if store.records[pairKey("u1", "c1")].ActiveQuest != nil {
		t.Fatal("failed submission should still consume the quest")
	}
}

func TestSubmitQuestWithoutActive(t *testing.T) {
	svc := newTestService(newFakeStore(), &scriptedProvider{})

	_, err := svc.SubmitQuest(context.Background(), "u1", "c1", "anything")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuestHint(t *testing.T) {
	store := newFakeStore()
	store.records[pairKey("u1", "c1")] = &types.RelationshipRecord{
		UserID: "u1", CharacterID: "c1",
		ActiveQuest: &types.Quest{
			ID: "q1", Type: types.QuestRiddle, Prompt: "p",
			Solution: "echo", Hints: []string{"first", "second"},
		},
	}
	svc := newTestService(store, &scriptedProvider{})

	hint, ok, err := svc.QuestHint(context.Background(), "u1", "c1", 0)
	if err != nil || !ok || hint != "first" {
		t.Fatalf("QuestHint(0) = %q, %v, %v", hint, ok, err)
	}
	if _, ok, _ := svc.QuestHint(context.Background(), "u1", "c1", 2); ok {
		t.Fatal("expected hints to be exhausted at index 2")
	}
}

func TestAddAffection(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &scriptedProvider{})

	result, err := svc.AddAffection(context.Background(), "u1", "c1", 150)
	if err != nil {
		t.Fatalf("AddAffection failed: %v", err)
	}
	if result.NewLevel != 150 || result.NewTier != 2 || !result.LeveledUp {
		t.Fatalf("unexpected result %#v", result)
	}

	if _, err := svc.AddAffection(context.Background(), "u1", "c1", -5); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for negative points, got %v", err)
	}
}

func TestAffectionStatusDefaultsForNewPair(t *testing.T) {
	svc := newTestService(newFakeStore(), &scriptedProvider{})

	rec, err := svc.AffectionStatus(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatalf("AffectionStatus failed: %v", err)
	}
	want := fmt.Sprintf("%d/%s", 1, affection.StatusDistant)
	got := fmt.Sprintf("%d/%s", rec.AffectionVisibleLevel, rec.RelationshipStatus)
	if got != want {
		t.Fatalf("new pair status = %s, want %s", got, want)
	}
}
