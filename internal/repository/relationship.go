package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/companion-engine/internal/types"
)

// relationshipModel maps to the relationships table. Facts and quest state
// are stored as JSON columns.
type relationshipModel struct {
	UserID                string `gorm:"primaryKey"`
	CharacterID           string `gorm:"primaryKey"`
	AffectionLevel        int
	AffectionVisibleLevel int
	RelationshipStatus    string
	RememberedFacts       []string `gorm:"serializer:json"`
	TotalMessages         int
	LastInteractionAt     time.Time
	ActiveQuest           *types.Quest         `gorm:"serializer:json"`
	QuestProgress         []types.QuestAttempt `gorm:"serializer:json"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (relationshipModel) TableName() string {
	return "relationships"
}

func (m *relationshipModel) toRecord() *types.RelationshipRecord {
	return &types.RelationshipRecord{
		UserID:                m.UserID,
		CharacterID:           m.CharacterID,
		AffectionLevel:        m.AffectionLevel,
		AffectionVisibleLevel: m.AffectionVisibleLevel,
		RelationshipStatus:    m.RelationshipStatus,
		RememberedFacts:       m.RememberedFacts,
		TotalMessages:         m.TotalMessages,
		LastInteractionAt:     m.LastInteractionAt,
		ActiveQuest:           m.ActiveQuest,
		QuestProgress:         m.QuestProgress,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func fromRecord(record *types.RelationshipRecord) *relationshipModel {
	return &relationshipModel{
		UserID:                record.UserID,
		CharacterID:           record.CharacterID,
		AffectionLevel:        record.AffectionLevel,
		AffectionVisibleLevel: record.AffectionVisibleLevel,
		RelationshipStatus:    record.RelationshipStatus,
		RememberedFacts:       record.RememberedFacts,
		TotalMessages:         record.TotalMessages,
		LastInteractionAt:     record.LastInteractionAt,
		ActiveQuest:           record.ActiveQuest,
		QuestProgress:         record.QuestProgress,
	}
}

// RelationshipRepo accesses relationship records.
type RelationshipRepo struct {
	db *gorm.DB
}

// NewRelationshipRepo returns a RelationshipRepo.
func NewRelationshipRepo(db *gorm.DB) *RelationshipRepo {
	return &RelationshipRepo{db: db}
}

// GetRelationship fetches one record, or nil when the pair is unknown.
func (r *RelationshipRepo) GetRelationship(ctx context.Context, userID, characterID string) (*types.RelationshipRecord, error) {
	var m relationshipModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return m.toRecord(), nil
}

// UpsertRelationship writes the whole record in a single upsert.
func (r *RelationshipRepo) UpsertRelationship(ctx context.Context, record *types.RelationshipRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "character_id"}},
			UpdateAll: true,
		}).
		Create(fromRecord(record)).Error
	if err != nil {
		return fmt.Errorf("failed to upsert relationship: %w", err)
	}
	return nil
}

// GetActiveQuest returns the pair's active quest, or nil.
func (r *RelationshipRepo) GetActiveQuest(ctx context.Context, userID, characterID string) (*types.Quest, error) {
	record, err := r.GetRelationship(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return record.ActiveQuest, nil
}

// SetActiveQuest stores or clears the pair's active quest.
func (r *RelationshipRepo) SetActiveQuest(ctx context.Context, userID, characterID string, quest *types.Quest) error {
	err := r.db.WithContext(ctx).
		Model(&relationshipModel{}).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		Update("active_quest", quest).Error
	if err != nil {
		return fmt.Errorf("failed to set active quest: %w", err)
	}
	return nil
}

// AppendQuestProgress appends one attempt to the pair's quest history.
func (r *RelationshipRepo) AppendQuestProgress(ctx context.Context, userID, characterID string, entry types.QuestAttempt) error {
	record, err := r.GetRelationship(ctx, userID, characterID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("relationship not found for quest progress")
	}
	record.QuestProgress = append(record.QuestProgress, entry)
	return r.UpsertRelationship(ctx, record)
}

// ListInactiveSince returns records whose last interaction predates cutoff.
func (r *RelationshipRepo) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]*types.RelationshipRecord, error) {
	var rows []relationshipModel
	err := r.db.WithContext(ctx).
		Where("last_interaction_at < ?", cutoff).
		Order("last_interaction_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list inactive relationships: %w", err)
	}
	records := make([]*types.RelationshipRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}
	return records, nil
}
