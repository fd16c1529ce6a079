package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/types"
)

type ConversationRepo interface {
	CreateMessage(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, role, content string, metadata map[string]any) (*types.ConversationMessage, error)
	// GetRecent returns up to limit of the newest messages, ordered oldest
	// first, ready for use as LLM context.
	GetRecent(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, limit int) ([]*types.ConversationMessage, error)
	// List pages through messages newest first.
	List(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, offset, limit int) ([]*types.ConversationMessage, error)
	GetByID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.ConversationMessage, error)
	CountByProfile(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (int64, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	repoLog := baseLog.With("repo", "ConversationRepo")
	return &conversationRepo{db: db, log: repoLog}
}

func (r *conversationRepo) CreateMessage(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, role, content string, metadata map[string]any) (*types.ConversationMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var metadataJSON datatypes.JSON
	if metadata != nil {
		raw, err := jsonColumn(metadata)
		if err != nil {
			return nil, err
		}
		metadataJSON = raw
	}

	message := &types.ConversationMessage{
		ID:            uuid.New(),
		UserProfileID: profileID,
		Role:          role,
		Content:       content,
		Metadata:      metadataJSON,
	}
	if err := transaction.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (r *conversationRepo) GetRecent(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, limit int) ([]*types.ConversationMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var newestFirst []*types.ConversationMessage
	if err := transaction.WithContext(ctx).
		Where("user_profile_id = ?", profileID).
		Order("created_at DESC").
		Limit(limit).
		Find(&newestFirst).Error; err != nil {
		return nil, err
	}

	oldestFirst := make([]*types.ConversationMessage, len(newestFirst))
	for i, message := range newestFirst {
		oldestFirst[len(newestFirst)-1-i] = message
	}
	return oldestFirst, nil
}

func (r *conversationRepo) List(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, offset, limit int) ([]*types.ConversationMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ConversationMessage
	if err := transaction.WithContext(ctx).
		Where("user_profile_id = ?", profileID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.ConversationMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var message types.ConversationMessage
	err := transaction.WithContext(ctx).
		Where("id = ?", messageID).
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *conversationRepo) CountByProfile(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ConversationMessage{}).
		Where("user_profile_id = ?", profileID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
