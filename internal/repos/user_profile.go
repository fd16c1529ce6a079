package repos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/types"
)

// Seed values for a freshly created profile. Single-user deployments start at
// Suggestive so the assistant can propose (but never take) actions.
var (
	defaultConsentTier = consent.TierSuggestive

	defaultTraits = map[string]any{
		"openness":          0.7,
		"conscientiousness": 0.6,
		"extraversion":      0.5,
		"agreeableness":     0.65,
		"neuroticism":       0.45,
		"risk_tolerance":    "medium",
		"decision_style":    "analytical",
	}

	defaultPreferences = map[string]any{
		"communication_style":    "conversational",
		"focus_areas":            []string{"productivity", "wellness"},
		"notification_frequency": "daily",
	}

	defaultContextSummary = "New user exploring AI life companion features."
)

type UserProfileRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*types.UserProfile, error)
	GetOrCreateDefault(ctx context.Context, tx *gorm.DB, userID string) (*types.UserProfile, error)
	// Update applies the given column values and increments profile_version in
	// the same write. Returns the reloaded profile.
	Update(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, updates map[string]any) (*types.UserProfile, error)
	// Delete purges the profile together with its messages and suggestions.
	Delete(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) error
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	repoLog := baseLog.With("repo", "UserProfileRepo")
	return &userProfileRepo{db: db, log: repoLog}
}

func (r *userProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*types.UserProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var profile types.UserProfile
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userProfileRepo) GetOrCreateDefault(ctx context.Context, tx *gorm.DB, userID string) (*types.UserProfile, error) {
	existing, err := r.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	traits, err := jsonColumn(defaultTraits)
	if err != nil {
		return nil, err
	}
	preferences, err := jsonColumn(defaultPreferences)
	if err != nil {
		return nil, err
	}
	patterns, err := jsonColumn(map[string]any{})
	if err != nil {
		return nil, err
	}

	profile := &types.UserProfile{
		ID:                 uuid.New(),
		UserID:             userID,
		DisplayName:        "User",
		ConsentTier:        defaultConsentTier,
		Traits:             traits,
		Preferences:        preferences,
		BehavioralPatterns: patterns,
		ContextSummary:     defaultContextSummary,
		ProfileVersion:     1,
	}
	if err := transaction.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	r.log.Info("Created default user profile", "user_id", userID, "consent_tier", profile.ConsentTier)
	return profile, nil
}

func (r *userProfileRepo) Update(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, updates map[string]any) (*types.UserProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	values := make(map[string]any, len(updates)+2)
	for key, value := range updates {
		values[key] = value
	}
	values["profile_version"] = gorm.Expr("profile_version + 1")
	values["updated_at"] = time.Now().UTC()

	result := transaction.WithContext(ctx).
		Model(&types.UserProfile{}).
		Where("id = ?", profileID).
		Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var profile types.UserProfile
	if err := transaction.WithContext(ctx).
		Where("id = ?", profileID).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userProfileRepo) Delete(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	// Children first: sqlite deployments have no FK cascade at migration time.
	if err := transaction.WithContext(ctx).
		Where("user_profile_id = ?", profileID).
		Delete(&types.Suggestion{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("user_profile_id = ?", profileID).
		Delete(&types.ConversationMessage{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Where("id = ?", profileID).
		Delete(&types.UserProfile{}).Error
}

func jsonColumn(value any) (datatypes.JSON, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
