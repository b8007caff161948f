package store

import (
	"context"
	"fmt"
	"time"
)

// MessageStore persists contact-form submissions. Two implementations
// exist: this GORM one and the pgx-native one in internal/inboxpg.
type MessageStore interface {
	Add(ctx context.Context, record *MessageRecord) error
	List(ctx context.Context) ([]MessageRecord, error)
	Delete(ctx context.Context, id uint) error
}

// Messages is the GORM-backed MessageStore.
type Messages struct {
	database *DB
}

// NewMessages wraps the shared database handle.
func NewMessages(database *DB) *Messages {
	return &Messages{database: database}
}

// Add stores a new submission and fills in its id and timestamp.
func (messages *Messages) Add(ctx context.Context, record *MessageRecord) error {
	if record.CreatedAtUnix == 0 {
		record.CreatedAtUnix = time.Now().UTC().Unix()
	}
	if err := messages.database.gorm.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("store.messages.add: %w", err)
	}
	return nil
}

// List returns submissions, newest first.
func (messages *Messages) List(ctx context.Context) ([]MessageRecord, error) {
	var rows []MessageRecord
	err := messages.database.gorm.WithContext(ctx).
		Order("created_at_unix desc, id desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store.messages.list: %w", err)
	}
	return rows, nil
}

// Delete removes a submission by id.
func (messages *Messages) Delete(ctx context.Context, id uint) error {
	result := messages.database.gorm.WithContext(ctx).Where("id = ?", id).Delete(&MessageRecord{})
	if result.Error != nil {
		return fmt.Errorf("store.messages.delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store.messages.delete: %w", ErrNotFound)
	}
	return nil
}
