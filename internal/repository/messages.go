package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/companion-engine/internal/types"
)

// messageModel maps to the conversation_messages table. Rows are append-only.
type messageModel struct {
	ID          int    `gorm:"primaryKey;autoIncrement"`
	UserID      string `gorm:"index:idx_messages_pair"`
	CharacterID string `gorm:"index:idx_messages_pair"`
	Role        string
	Content     string
	Proactive   bool
	CreatedAt   time.Time
}

func (messageModel) TableName() string {
	return "conversation_messages"
}

// MessageRepo accesses conversation history.
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo returns a MessageRepo.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage inserts one message. Messages are never mutated after insert.
func (r *MessageRepo) AppendMessage(ctx context.Context, msg *types.ConversationMessage) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	record := messageModel{
		UserID:      msg.UserID,
		CharacterID: msg.CharacterID,
		Role:        msg.Role,
		Content:     msg.Content,
		Proactive:   msg.Proactive,
		CreatedAt:   msg.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetRecentMessages returns up to limit messages for the pair, oldest first.
func (r *MessageRepo) GetRecentMessages(ctx context.Context, userID, characterID string, limit int) ([]*types.ConversationMessage, error) {
	var rows []messageModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}

	messages := make([]*types.ConversationMessage, len(rows))
	for i := range rows {
		// Reverse back into chronological order.
		m := rows[len(rows)-1-i]
		messages[i] = &types.ConversationMessage{
			ID:          m.ID,
			UserID:      m.UserID,
			CharacterID: m.CharacterID,
			Role:        m.Role,
			Content:     m.Content,
			Proactive:   m.Proactive,
			CreatedAt:   m.CreatedAt,
		}
	}
	return messages, nil
}

// LastProactiveAt returns the timestamp of the most recent proactive-flagged
// ai_speech message for the pair, or zero when none exists. Ordinary chat
// replies are never counted.
func (r *MessageRepo) LastProactiveAt(ctx context.Context, userID, characterID string) (time.Time, error) {
	var m messageModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND character_id = ? AND role = ? AND proactive = ?", userID, characterID, types.RoleSpeech, true).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last proactive message: %w", err)
	}
	return m.CreatedAt, nil
}
