package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/repos"
	"github.com/yungbote/othello-backend/internal/types"
)

// SuggestionList pairs a page of suggestions with the pending backlog size.
type SuggestionList struct {
	Suggestions  []*types.Suggestion `json:"suggestions"`
	PendingCount int64               `json:"pending_count"`
}

type SuggestionService interface {
	List(ctx context.Context, userID, status string, offset, limit int) (*SuggestionList, error)
	Get(ctx context.Context, suggestionID uuid.UUID) (*types.Suggestion, error)
	Approve(ctx context.Context, suggestionID uuid.UUID, userResponse string) (*types.Suggestion, error)
	Deny(ctx context.Context, suggestionID uuid.UUID, userResponse string) (*types.Suggestion, error)
	Expire(ctx context.Context, suggestionID uuid.UUID) (*types.Suggestion, error)
}

type suggestionService struct {
	log         *logger.Logger
	profileRepo repos.UserProfileRepo
	suggRepo    repos.SuggestionRepo
}

func NewSuggestionService(log *logger.Logger, profileRepo repos.UserProfileRepo, suggRepo repos.SuggestionRepo) SuggestionService {
	return &suggestionService{
		log:         log.With("service", "SuggestionService"),
		profileRepo: profileRepo,
		suggRepo:    suggRepo,
	}
}

func (s *suggestionService) List(ctx context.Context, userID, status string, offset, limit int) (*SuggestionList, error) {
	profile, err := s.profileRepo.GetOrCreateDefault(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	suggestions, err := s.suggRepo.ListByProfile(ctx, nil, profile.ID, status, offset, limit)
	if err != nil {
		return nil, err
	}
	pending, err := s.suggRepo.CountPending(ctx, nil, profile.ID)
	if err != nil {
		return nil, err
	}
	return &SuggestionList{Suggestions: suggestions, PendingCount: pending}, nil
}

func (s *suggestionService) Get(ctx context.Context, suggestionID uuid.UUID) (*types.Suggestion, error) {
	return s.suggRepo.GetByID(ctx, nil, suggestionID)
}

func (s *suggestionService) Approve(ctx context.Context, suggestionID uuid.UUID, userResponse string) (*types.Suggestion, error) {
	suggestion, err := s.suggRepo.Transition(ctx, nil, suggestionID, types.SuggestionStatusApproved, userResponse)
	if err != nil {
		return nil, err
	}
	s.log.Info("Suggestion approved", "suggestion_id", suggestionID)
	return suggestion, nil
}

func (s *suggestionService) Deny(ctx context.Context, suggestionID uuid.UUID, userResponse string) (*types.Suggestion, error) {
	suggestion, err := s.suggRepo.Transition(ctx, nil, suggestionID, types.SuggestionStatusDenied, userResponse)
	if err != nil {
		return nil, err
	}
	s.log.Info("Suggestion denied", "suggestion_id", suggestionID)
	return suggestion, nil
}

func (s *suggestionService) Expire(ctx context.Context, suggestionID uuid.UUID) (*types.Suggestion, error) {
	suggestion, err := s.suggRepo.Transition(ctx, nil, suggestionID, types.SuggestionStatusExpired, "")
	if err != nil {
		return nil, err
	}
	s.log.Info("Suggestion expired", "suggestion_id", suggestionID)
	return suggestion, nil
}
