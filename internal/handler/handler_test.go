package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/affection"
	"github.com/easeaico/companion-engine/internal/apperr"
	"github.com/easeaico/companion-engine/internal/chat"
	"github.com/easeaico/companion-engine/internal/gateway"
	"github.com/easeaico/companion-engine/internal/models"
	"github.com/easeaico/companion-engine/internal/quest"
	"github.com/easeaico/companion-engine/internal/types"
)

type memStore struct {
	records map[string]*types.RelationshipRecord
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*types.RelationshipRecord{}}
}

func (s *memStore) GetRelationship(_ context.Context, userID, characterID string) (*types.RelationshipRecord, error) {
	rec, ok := s.records[userID+"|"+characterID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) UpsertRelationship(_ context.Context, record *types.RelationshipRecord) error {
	cp := *record
	s.records[record.UserID+"|"+record.CharacterID] = &cp
	return nil
}

func (s *memStore) AppendMessage(_ context.Context, _ *types.ConversationMessage) error {
	return nil
}

type stubProvider struct {
	content string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(_ context.Context, _ *models.CompletionRequest) (*models.CompletionResponse, error) {
	return &models.CompletionResponse{Content: p.content, FinishReason: models.FinishStop}, nil
}

func newTestRouter(store *memStore) http.Handler {
	gw := gateway.New(&stubProvider{content: "hello!"}, gateway.NewAdmissionController(10), nil, time.Second, zerolog.Nop())
	svc := chat.NewService(store, gw, affection.NewEngine(store, zerolog.Nop()), quest.NewEngine(), zerolog.Nop())
	return New(svc, zerolog.Nop()).Router()
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func chatPayload() map[string]any {
	return map[string]any{
		"userId":      "u1",
		"characterId": "c1",
		"question":    "hi there",
		"modelName":   "gpt-test",
		"mood":        "cheerful",
		"characterData": map[string]any{
			"name":     "Mina",
			"identity": "a cheerful companion",
			"greeting": "Hey you~",
		},
	}
}

func TestChatEndpoint(t *testing.T) {
	router := newTestRouter(newMemStore())

	w := postJSON(t, router, "/chat", chatPayload())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Answer         string `json:"answer"`
		Mood           string `json:"mood"`
		TypingDelay    int    `json:"typingDelay"`
		AffectionLevel int    `json:"affectionLevel"`
	}
	decodeBody(t, w, &resp)
	if resp.Answer != "hello!" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if resp.Mood != "cheerful" || resp.TypingDelay == 0 {
		t.Fatalf("unexpected metadata %#v", resp)
	}
}

func TestChatEndpointValidation(t *testing.T) {
	router := newTestRouter(newMemStore())

	payload := chatPayload()
	delete(payload, "question")
	w := postJSON(t, router, "/chat", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Code != string(apperr.KindValidation) {
		t.Fatalf("expected validation code, got %q", resp.Code)
	}
	if resp.TraceID == "" {
		t.Fatal("expected a trace id")
	}
}

func TestChatEndpointRejectsMalformedJSON(t *testing.T) {
	router := newTestRouter(newMemStore())

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestQuestEndpoints(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store)

	w := postJSON(t, router, "/quests/generate", map[string]any{
		"userId": "u1", "characterId": "c1", "characterName": "Mina",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var generated types.Quest
	decodeBody(t, w, &generated)
	if generated.ID == "" || generated.Type == "" {
		t.Fatalf("unexpected quest %#v", generated)
	}

	w = postJSON(t, router, "/quests/hint", map[string]any{
		"userId": "u1", "characterId": "c1", "hintIndex": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("hint: expected 200, got %d", w.Code)
	}

	// Overwrite the active quest so the submission is deterministic.
	rec := store.records["u1|c1"]
	rec.ActiveQuest = &types.Quest{
		ID: "q1", Type: types.QuestRiddle, Prompt: "p",
		Solution: "echo", Difficulty: types.DifficultyEasy,
		Reward: 3, AttemptReward: 1,
	}

	w = postJSON(t, router, "/quests/submit", map[string]any{
		"userId": "u1", "characterId": "c1", "answer": "echo",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result chat.QuestResult
	decodeBody(t, w, &result)
	if !result.Success || result.RewardGranted != 3 {
		t.Fatalf("unexpected submit result %#v", result)
	}

	w = postJSON(t, router, "/quests/submit", map[string]any{
		"userId": "u1", "characterId": "c1", "answer": "echo",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("submit without active quest: expected 400, got %d", w.Code)
	}
}

func TestQuestEndpointRequiresIDs(t *testing.T) {
	router := newTestRouter(newMemStore())

	w := postJSON(t, router, "/quests/generate", map[string]any{"characterId": "c1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAffectionEndpoints(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store)

	w := postJSON(t, router, "/affection/update", map[string]any{
		"userId": "u1", "characterId": "c1", "points": 150,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var update struct {
		AffectionLevel int  `json:"affectionLevel"`
		VisibleLevel   int  `json:"visibleLevel"`
		LeveledUp      bool `json:"leveledUp"`
	}
	decodeBody(t, w, &update)
	if update.AffectionLevel != 150 || update.VisibleLevel != 2 || !update.LeveledUp {
		t.Fatalf("unexpected update result %#v", update)
	}

	req := httptest.NewRequest(http.MethodGet, "/affection/status?userId=u1&characterId=c1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var status struct {
		AffectionLevel     int    `json:"affectionLevel"`
		RelationshipStatus string `json:"relationshipStatus"`
	}
	decodeBody(t, rec, &status)
	if status.AffectionLevel != 150 || status.RelationshipStatus != affection.StatusNeutral {
		t.Fatalf("unexpected status %#v", status)
	}

	req = httptest.NewRequest(http.MethodGet, "/affection/status", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status without ids: expected 400, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Fatalf("unexpected health body %#v", resp)
	}
}

func TestWriteErrorCapacity(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, zerolog.Nop(), apperr.CapacityExceeded(2*time.Second))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Code != string(apperr.KindCapacityExceeded) || resp.RetryAfter != 2 {
		t.Fatalf("unexpected body %#v", resp)
	}
}

func TestWriteErrorHidesInternals(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, zerolog.Nop(), apperr.Internal(context.DeadlineExceeded))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Error != "service busy, please retry shortly" {
		t.Fatalf("expected generic message, got %q", resp.Error)
	}
	if resp.TraceID == "" {
		t.Fatal("expected a trace id")
	}
}
