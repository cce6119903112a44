// Package handler exposes the engine's HTTP surface to the hosting
// application.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/apperr"
	"github.com/easeaico/companion-engine/internal/chat"
	"github.com/easeaico/companion-engine/internal/models"
	"github.com/easeaico/companion-engine/internal/types"
)

// Handler holds the chat service and serves the engine endpoints.
type Handler struct {
	svc *chat.Service
	log zerolog.Logger
}

// New creates the handler.
func New(svc *chat.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log.With().Str("component", "handler").Logger()}
}

// Router builds the mux router with all engine routes.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(recoverMiddleware(h.log))

	router.HandleFunc("/healthz", h.Health).Methods("GET")
	router.HandleFunc("/chat", h.Chat).Methods("POST")
	router.HandleFunc("/quests/generate", h.GenerateQuest).Methods("POST")
	router.HandleFunc("/quests/submit", h.SubmitQuest).Methods("POST")
	router.HandleFunc("/quests/hint", h.QuestHint).Methods("POST")
	router.HandleFunc("/affection/status", h.AffectionStatus).Methods("GET")
	router.HandleFunc("/affection/update", h.UpdateAffection).Methods("POST")
	return router
}

// recoverMiddleware converts panics into the generic error body instead of
// leaking a stack trace to the client.
func recoverMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
					writeError(w, log, apperr.Internal(nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type chatBody struct {
	UserID              string                   `json:"userId"`
	CharacterID         string                   `json:"characterId"`
	Question            string                   `json:"question"`
	ModelName           string                   `json:"modelName"`
	Mood                string                   `json:"mood"`
	CustomInstructions  string                   `json:"customInstructions"`
	ConversationHistory []models.Message         `json:"conversationHistory"`
	CharacterData       *types.PersonaDefinition `json:"characterData"`
	PersistentContext   string                   `json:"persistentContext"`
	IncognitoMode       bool                     `json:"incognitoMode"`
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var in chatBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, h.log, apperr.Validation("invalid json body"))
		return
	}

	resp, err := h.svc.HandleTurn(r.Context(), &chat.Request{
		UserID:              in.UserID,
		CharacterID:         in.CharacterID,
		Question:            in.Question,
		ModelName:           in.ModelName,
		Mood:                in.Mood,
		CustomInstructions:  in.CustomInstructions,
		ConversationHistory: in.ConversationHistory,
		Character:           in.CharacterData,
		PersistentContext:   in.PersistentContext,
		IncognitoMode:       in.IncognitoMode,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type questBody struct {
	UserID        string `json:"userId"`
	CharacterID   string `json:"characterId"`
	CharacterName string `json:"characterName"`
	Personality   string `json:"personality"`
	Answer        string `json:"answer"`
	HintIndex     int    `json:"hintIndex"`
}

func decodeQuestBody(r *http.Request) (*questBody, error) {
	var in questBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, apperr.Validation("invalid json body")
	}
	if in.UserID == "" {
		return nil, apperr.Validation("userId is required")
	}
	if in.CharacterID == "" {
		return nil, apperr.Validation("characterId is required")
	}
	return &in, nil
}

// GenerateQuest handles POST /quests/generate.
func (h *Handler) GenerateQuest(w http.ResponseWriter, r *http.Request) {
	in, err := decodeQuestBody(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	quest, err := h.svc.GenerateQuest(r.Context(), in.UserID, in.CharacterID, in.CharacterName, in.Personality)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quest)
}

// SubmitQuest handles POST /quests/submit.
func (h *Handler) SubmitQuest(w http.ResponseWriter, r *http.Request) {
	in, err := decodeQuestBody(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if in.Answer == "" {
		writeError(w, h.log, apperr.Validation("answer is required"))
		return
	}
	result, err := h.svc.SubmitQuest(r.Context(), in.UserID, in.CharacterID, in.Answer)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// QuestHint handles POST /quests/hint.
func (h *Handler) QuestHint(w http.ResponseWriter, r *http.Request) {
	in, err := decodeQuestBody(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	hint, ok, err := h.svc.QuestHint(r.Context(), in.UserID, in.CharacterID, in.HintIndex)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hint": hint, "available": ok})
}

// AffectionStatus handles GET /affection/status.
func (h *Handler) AffectionStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	characterID := r.URL.Query().Get("characterId")
	if userID == "" || characterID == "" {
		writeError(w, h.log, apperr.Validation("userId and characterId are required"))
		return
	}
	record, err := h.svc.AffectionStatus(r.Context(), userID, characterID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"affectionLevel":     record.AffectionLevel,
		"visibleLevel":       record.AffectionVisibleLevel,
		"relationshipStatus": record.RelationshipStatus,
		"totalMessages":      record.TotalMessages,
		"rememberedFacts":    record.RememberedFacts,
		"activeQuest":        record.ActiveQuest,
	})
}

type affectionBody struct {
	UserID      string `json:"userId"`
	CharacterID string `json:"characterId"`
	Points      int    `json:"points"`
}

// UpdateAffection handles POST /affection/update.
func (h *Handler) UpdateAffection(w http.ResponseWriter, r *http.Request) {
	var in affectionBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, h.log, apperr.Validation("invalid json body"))
		return
	}
	if in.UserID == "" || in.CharacterID == "" {
		writeError(w, h.log, apperr.Validation("userId and characterId are required"))
		return
	}
	result, err := h.svc.AddAffection(r.Context(), in.UserID, in.CharacterID, in.Points)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pointsGained":   result.PointsGained,
		"affectionLevel": result.NewLevel,
		"visibleLevel":   result.NewTier,
		"leveledUp":      result.LeveledUp,
	})
}
