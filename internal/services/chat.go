package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/repos"
	"github.com/yungbote/othello-backend/internal/types"
	"github.com/yungbote/othello-backend/internal/utils"
)

// behavioralLogLimit caps the rolling interaction log kept on the profile.
const behavioralLogLimit = 100

// ChatSuggestion is one gated suggestion as returned to the caller.
type ChatSuggestion struct {
	ID               uuid.UUID `json:"id"`
	SuggestionText   string    `json:"suggestion_text"`
	ConsentTier      string    `json:"consent_tier"`
	EthicalReasoning string    `json:"ethical_reasoning"`
	Status           string    `json:"status"`
}

// ChatResult is the outcome of one processed user message.
type ChatResult struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	Message        string           `json:"message"`
	Response       string           `json:"response"`
	Suggestions    []ChatSuggestion `json:"suggestions"`
	ProfileUpdated bool             `json:"profile_updated"`
}

type ChatService interface {
	ProcessMessage(ctx context.Context, userID, message string, extra map[string]any) (*ChatResult, error)
}

type chatService struct {
	log          *logger.Logger
	profileRepo  repos.UserProfileRepo
	convRepo     repos.ConversationRepo
	suggRepo     repos.SuggestionRepo
	engine       *consent.Engine
	ai           AIClient
	historyLimit int
}

func NewChatService(
	log *logger.Logger,
	profileRepo repos.UserProfileRepo,
	convRepo repos.ConversationRepo,
	suggRepo repos.SuggestionRepo,
	engine *consent.Engine,
	ai AIClient,
) ChatService {
	svcLog := log.With("service", "ChatService")
	return &chatService{
		log:          svcLog,
		profileRepo:  profileRepo,
		convRepo:     convRepo,
		suggRepo:     suggRepo,
		engine:       engine,
		ai:           ai,
		historyLimit: utils.GetEnvAsInt("CHAT_HISTORY_LIMIT", 20, svcLog),
	}
}

func (s *chatService) ProcessMessage(ctx context.Context, userID, message string, extra map[string]any) (*ChatResult, error) {
	if message == "" {
		return nil, fmt.Errorf("message must not be empty")
	}

	profile, err := s.profileRepo.GetOrCreateDefault(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	// Conversation history is context, not a hard dependency.
	history, err := s.convRepo.GetRecent(ctx, nil, profile.ID, s.historyLimit)
	if err != nil {
		s.log.Warn("Failed to load conversation history, continuing without it", "user_id", userID, "error", err)
		history = nil
	}

	result, err := s.ai.Complete(ctx, message, profile, history, extra)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}

	rawSuggestions := result.Suggestions
	if len(rawSuggestions) == 0 && consent.TierLevel(profile.ConsentTier) > consent.TierLevel(consent.TierPassive) {
		extracted, extractErr := s.ai.ExtractSuggestions(ctx, message, result.Response, profile)
		if extractErr != nil {
			s.log.Warn("Fallback suggestion extraction failed", "user_id", userID, "error", extractErr)
		} else {
			rawSuggestions = extracted
		}
	}

	gateInput := make([]consent.RawSuggestion, 0, len(rawSuggestions))
	for _, raw := range rawSuggestions {
		gateInput = append(gateInput, consent.RawSuggestion{
			SuggestionText: raw.Action,
			TierHint:       raw.ConsentTier,
			Extra:          map[string]any{"ai_reasoning": raw.Reasoning},
		})
	}
	gated := s.engine.GateBatch(gateInput, profile.ConsentTier)

	permitted := make([]consent.GatedSuggestion, 0, len(gated))
	for _, gs := range gated {
		if gs.IsPermitted {
			permitted = append(permitted, gs)
		}
	}
	blocked := len(gated) - len(permitted)

	conversationID := uuid.New()

	userMeta := map[string]any{"conversation_id": conversationID.String()}
	if len(extra) > 0 {
		userMeta["context"] = extra
	}
	if _, err := s.convRepo.CreateMessage(ctx, nil, profile.ID, types.RoleUser, message, userMeta); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	assistantMeta := map[string]any{
		"conversation_id":      conversationID.String(),
		"suggestion_count":     len(permitted),
		"blocked_count":        blocked,
		"raw_suggestion_count": len(rawSuggestions),
	}
	assistantMsg, err := s.convRepo.CreateMessage(ctx, nil, profile.ID, types.RoleAssistant, result.Response, assistantMeta)
	if err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	suggestions := s.persistPermitted(ctx, profile, assistantMsg.ID, permitted)

	profileUpdated := s.recordInteraction(ctx, profile, message, len(permitted))

	s.log.Info("Chat message processed",
		"user_id", userID,
		"conversation_id", conversationID,
		"suggestions_permitted", len(permitted),
		"suggestions_blocked", blocked,
	)

	return &ChatResult{
		ConversationID: conversationID,
		Message:        message,
		Response:       result.Response,
		Suggestions:    suggestions,
		ProfileUpdated: profileUpdated,
	}, nil
}

// persistPermitted stores each permitted suggestion as pending, linked to the
// assistant message that carried it. Rows are written concurrently; output
// order matches gating order. Persistence is best-effort: a failed insert is
// logged and its suggestion dropped from the result, never failing the turn.
func (s *chatService) persistPermitted(ctx context.Context, profile *types.UserProfile, assistantMessageID uuid.UUID, permitted []consent.GatedSuggestion) []ChatSuggestion {
	slots := make([]*ChatSuggestion, len(permitted))
	var group errgroup.Group

	for i, gs := range permitted {
		group.Go(func() error {
			aiReasoning, _ := gs.Extra["ai_reasoning"].(string)
			combined := combineReasoning(aiReasoning, gs.EthicalReasoning)

			record := &types.Suggestion{
				UserProfileID:    profile.ID,
				ConversationID:   &assistantMessageID,
				SuggestionText:   gs.SuggestionText,
				ConsentTier:      gs.AssignedTier,
				EthicalReasoning: combined,
				Status:           types.SuggestionStatusPending,
				Metadata: messageMetadata(map[string]any{
					"filter_reasoning":  gs.FilterReasoning,
					"user_consent_tier": gs.UserConsentTier,
				}),
			}
			created, err := s.suggRepo.Create(ctx, nil, record)
			if err != nil {
				s.log.Warn("Failed to persist suggestion, skipping it", "profile_id", profile.ID, "suggestion_text", gs.SuggestionText, "error", err)
				return nil
			}
			slots[i] = &ChatSuggestion{
				ID:               created.ID,
				SuggestionText:   created.SuggestionText,
				ConsentTier:      created.ConsentTier,
				EthicalReasoning: created.EthicalReasoning,
				Status:           created.Status,
			}
			return nil
		})
	}
	_ = group.Wait()

	out := make([]ChatSuggestion, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			out = append(out, *slot)
		}
	}
	return out
}

// recordInteraction appends to the rolling interaction log on the profile.
// Failures are logged and reported via the returned flag, never fatal.
func (s *chatService) recordInteraction(ctx context.Context, profile *types.UserProfile, message string, suggestionCount int) bool {
	var patterns map[string]any
	if len(profile.BehavioralPatterns) > 0 {
		if err := json.Unmarshal(profile.BehavioralPatterns, &patterns); err != nil {
			s.log.Warn("Failed to decode behavioral patterns, resetting", "profile_id", profile.ID, "error", err)
		}
	}
	if patterns == nil {
		patterns = map[string]any{}
	}

	interactions, _ := patterns["interactions"].([]any)
	interactions = append(interactions, map[string]any{
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"message_length":   len(message),
		"suggestion_count": suggestionCount,
	})
	if len(interactions) > behavioralLogLimit {
		interactions = interactions[len(interactions)-behavioralLogLimit:]
	}
	patterns["interactions"] = interactions

	encoded, err := json.Marshal(patterns)
	if err != nil {
		s.log.Warn("Failed to encode behavioral patterns", "profile_id", profile.ID, "error", err)
		return false
	}

	updates := map[string]any{"behavioral_patterns": datatypes.JSON(encoded)}
	if _, err := s.profileRepo.Update(ctx, nil, profile.ID, updates); err != nil {
		s.log.Warn("Failed to record interaction on profile", "profile_id", profile.ID, "error", err)
		return false
	}
	return true
}

func combineReasoning(aiReasoning, ethicalAssessment string) string {
	if aiReasoning == "" {
		aiReasoning = "No reasoning provided."
	}
	return fmt.Sprintf("AI Reasoning: %s\n\nEthical Assessment: %s", aiReasoning, ethicalAssessment)
}

func messageMetadata(values map[string]any) datatypes.JSON {
	encoded, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return datatypes.JSON(encoded)
}
