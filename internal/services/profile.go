package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/repos"
	"github.com/yungbote/othello-backend/internal/types"
)

// ValidationError marks caller input the service refuses to store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ProfileUpdate carries the mutable profile fields. Nil pointers and nil
// maps mean "leave unchanged"; map fields merge key by key.
type ProfileUpdate struct {
	DisplayName        *string        `json:"display_name"`
	ConsentTier        *string        `json:"consent_tier"`
	ContextSummary     *string        `json:"context_summary"`
	Traits             map[string]any `json:"traits"`
	Preferences        map[string]any `json:"preferences"`
	BehavioralPatterns map[string]any `json:"behavioral_patterns"`
}

// ProfileSummary is the condensed read model for the profile.
type ProfileSummary struct {
	UserID          string `json:"user_id"`
	DisplayName     string `json:"display_name"`
	ConsentTier     string `json:"consent_tier"`
	TierDescription string `json:"tier_description"`
	ContextSummary  string `json:"context_summary"`
	ProfileVersion  int    `json:"profile_version"`
}

type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*types.UserProfile, error)
	GetSummary(ctx context.Context, userID string) (*ProfileSummary, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*types.UserProfile, error)
	SetConsentTier(ctx context.Context, userID, tier string) (*types.UserProfile, error)
	DeleteProfile(ctx context.Context, userID string) error
}

type profileService struct {
	log         *logger.Logger
	profileRepo repos.UserProfileRepo
}

func NewProfileService(log *logger.Logger, profileRepo repos.UserProfileRepo) ProfileService {
	return &profileService{
		log:         log.With("service", "ProfileService"),
		profileRepo: profileRepo,
	}
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*types.UserProfile, error) {
	return s.profileRepo.GetOrCreateDefault(ctx, nil, userID)
}

func (s *profileService) GetSummary(ctx context.Context, userID string) (*ProfileSummary, error) {
	profile, err := s.profileRepo.GetOrCreateDefault(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileSummary{
		UserID:          profile.UserID,
		DisplayName:     profile.DisplayName,
		ConsentTier:     profile.ConsentTier,
		TierDescription: consent.TierDescriptions[profile.ConsentTier],
		ContextSummary:  profile.ContextSummary,
		ProfileVersion:  profile.ProfileVersion,
	}, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*types.UserProfile, error) {
	profile, err := s.profileRepo.GetOrCreateDefault(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if update.DisplayName != nil {
		updates["display_name"] = *update.DisplayName
	}
	if update.ContextSummary != nil {
		updates["context_summary"] = *update.ContextSummary
	}
	if update.ConsentTier != nil {
		tier := *update.ConsentTier
		if !consent.IsValidTier(tier) {
			return nil, &ValidationError{Field: "consent_tier", Message: fmt.Sprintf("'%s' is not a recognized consent tier", tier)}
		}
		updates["consent_tier"] = tier
	}

	if update.Traits != nil {
		merged, err := mergeJSONColumn(profile.Traits, update.Traits)
		if err != nil {
			return nil, fmt.Errorf("merge traits: %w", err)
		}
		updates["traits"] = merged
	}
	if update.Preferences != nil {
		merged, err := mergeJSONColumn(profile.Preferences, update.Preferences)
		if err != nil {
			return nil, fmt.Errorf("merge preferences: %w", err)
		}
		updates["preferences"] = merged
	}
	if update.BehavioralPatterns != nil {
		merged, err := mergeJSONColumn(profile.BehavioralPatterns, update.BehavioralPatterns)
		if err != nil {
			return nil, fmt.Errorf("merge behavioral patterns: %w", err)
		}
		updates["behavioral_patterns"] = merged
	}

	if len(updates) == 0 {
		return profile, nil
	}

	updated, err := s.profileRepo.Update(ctx, nil, profile.ID, updates)
	if err != nil {
		return nil, err
	}
	s.log.Info("Profile updated", "user_id", userID, "fields", len(updates), "profile_version", updated.ProfileVersion)
	return updated, nil
}

func (s *profileService) SetConsentTier(ctx context.Context, userID, tier string) (*types.UserProfile, error) {
	if !consent.IsValidTier(tier) {
		return nil, &ValidationError{Field: "consent_tier", Message: fmt.Sprintf("'%s' is not a recognized consent tier", tier)}
	}

	profile, err := s.profileRepo.GetOrCreateDefault(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if profile.ConsentTier == tier {
		return profile, nil
	}

	updated, err := s.profileRepo.Update(ctx, nil, profile.ID, map[string]any{"consent_tier": tier})
	if err != nil {
		return nil, err
	}
	s.log.Info("Consent tier changed", "user_id", userID, "from", profile.ConsentTier, "to", tier)
	return updated, nil
}

func (s *profileService) DeleteProfile(ctx context.Context, userID string) error {
	profile, err := s.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}
	if err := s.profileRepo.Delete(ctx, nil, profile.ID); err != nil {
		return err
	}
	s.log.Info("Profile deleted", "user_id", userID, "profile_id", profile.ID)
	return nil
}

// mergeJSONColumn overlays incoming keys onto the stored document. Existing
// keys not named by the update survive.
func mergeJSONColumn(existing datatypes.JSON, incoming map[string]any) (datatypes.JSON, error) {
	merged := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return nil, err
		}
	}
	for key, value := range incoming {
		merged[key] = value
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
