package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/repos"
	"github.com/yungbote/othello-backend/internal/types"
)

// ConversationPage is one page of message history, newest first.
type ConversationPage struct {
	Messages []*types.ConversationMessage `json:"messages"`
	Total    int64                        `json:"total"`
}

type ConversationService interface {
	ListMessages(ctx context.Context, userID string, offset, limit int) (*ConversationPage, error)
	GetMessage(ctx context.Context, messageID uuid.UUID) (*types.ConversationMessage, error)
}

type conversationService struct {
	log         *logger.Logger
	profileRepo repos.UserProfileRepo
	convRepo    repos.ConversationRepo
}

func NewConversationService(log *logger.Logger, profileRepo repos.UserProfileRepo, convRepo repos.ConversationRepo) ConversationService {
	return &conversationService{
		log:         log.With("service", "ConversationService"),
		profileRepo: profileRepo,
		convRepo:    convRepo,
	}
}

func (s *conversationService) ListMessages(ctx context.Context, userID string, offset, limit int) (*ConversationPage, error) {
	profile, err := s.profileRepo.GetOrCreateDefault(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	messages, err := s.convRepo.List(ctx, nil, profile.ID, offset, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.convRepo.CountByProfile(ctx, nil, profile.ID)
	if err != nil {
		return nil, err
	}
	return &ConversationPage{Messages: messages, Total: total}, nil
}

func (s *conversationService) GetMessage(ctx context.Context, messageID uuid.UUID) (*types.ConversationMessage, error) {
	return s.convRepo.GetByID(ctx, nil, messageID)
}
