package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/types"
)

type SuggestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, suggestion *types.Suggestion) (*types.Suggestion, error)
	GetByID(ctx context.Context, tx *gorm.DB, suggestionID uuid.UUID) (*types.Suggestion, error)
	// ListByProfile pages newest first; status filters when non-empty.
	ListByProfile(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, status string, offset, limit int) ([]*types.Suggestion, error)
	CountPending(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (int64, error)
	// Transition moves a pending suggestion to a terminal status. A suggestion
	// that already left pending yields *types.StateConflictError and no write.
	Transition(ctx context.Context, tx *gorm.DB, suggestionID uuid.UUID, toStatus, userResponse string) (*types.Suggestion, error)
}

type suggestionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSuggestionRepo(db *gorm.DB, baseLog *logger.Logger) SuggestionRepo {
	repoLog := baseLog.With("repo", "SuggestionRepo")
	return &suggestionRepo{db: db, log: repoLog}
}

func (r *suggestionRepo) Create(ctx context.Context, tx *gorm.DB, suggestion *types.Suggestion) (*types.Suggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if suggestion.ID == uuid.Nil {
		suggestion.ID = uuid.New()
	}
	if suggestion.Status == "" {
		suggestion.Status = types.SuggestionStatusPending
	}
	if err := transaction.WithContext(ctx).Create(suggestion).Error; err != nil {
		return nil, err
	}
	return suggestion, nil
}

func (r *suggestionRepo) GetByID(ctx context.Context, tx *gorm.DB, suggestionID uuid.UUID) (*types.Suggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var suggestion types.Suggestion
	err := transaction.WithContext(ctx).
		Where("id = ?", suggestionID).
		First(&suggestion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &suggestion, nil
}

func (r *suggestionRepo) ListByProfile(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, status string, offset, limit int) ([]*types.Suggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Where("user_profile_id = ?", profileID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var results []*types.Suggestion
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *suggestionRepo) CountPending(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Suggestion{}).
		Where("user_profile_id = ? AND status = ?", profileID, types.SuggestionStatusPending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *suggestionRepo) Transition(ctx context.Context, tx *gorm.DB, suggestionID uuid.UUID, toStatus, userResponse string) (*types.Suggestion, error) {
	switch toStatus {
	case types.SuggestionStatusApproved, types.SuggestionStatusDenied, types.SuggestionStatusExpired:
	default:
		return nil, fmt.Errorf("invalid target status %q", toStatus)
	}

	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now().UTC()
	values := map[string]any{
		"status":     toStatus,
		"updated_at": now,
	}
	if toStatus != types.SuggestionStatusExpired {
		values["user_response"] = userResponse
		values["responded_at"] = now
	}

	// Guarded write: only a pending row transitions, so a concurrent resolve
	// loses cleanly instead of overwriting.
	result := transaction.WithContext(ctx).
		Model(&types.Suggestion{}).
		Where("id = ? AND status = ?", suggestionID, types.SuggestionStatusPending).
		Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		current, err := r.GetByID(ctx, transaction, suggestionID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, &types.StateConflictError{
			SuggestionID: suggestionID,
			Current:      current.Status,
			Attempted:    toStatus,
		}
	}

	return r.GetByID(ctx, transaction, suggestionID)
}
