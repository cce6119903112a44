// Package repository implements the persistent store on PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/easeaico/companion-engine/internal/types"
)

// Store holds the DB pool and repositories.
type Store struct {
	db            *gorm.DB
	Relationships *RelationshipRepo
	Messages      *MessageRepo
}

// NewStore initializes the PostgreSQL pool and repositories.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&relationshipModel{}, &messageModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{
		db:            db,
		Relationships: NewRelationshipRepo(db),
		Messages:      NewMessageRepo(db),
	}, nil
}

// GetRelationship delegates to the relationship repo so Store satisfies the
// chat service's persistence interface.
func (s *Store) GetRelationship(ctx context.Context, userID, characterID string) (*types.RelationshipRecord, error) {
	return s.Relationships.GetRelationship(ctx, userID, characterID)
}

// UpsertRelationship delegates to the relationship repo.
func (s *Store) UpsertRelationship(ctx context.Context, record *types.RelationshipRecord) error {
	return s.Relationships.UpsertRelationship(ctx, record)
}

// AppendMessage delegates to the message repo.
func (s *Store) AppendMessage(ctx context.Context, msg *types.ConversationMessage) error {
	return s.Messages.AppendMessage(ctx, msg)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.Close()
}
