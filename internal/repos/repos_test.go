package repos

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/types"
)

func testDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&types.UserProfile{}, &types.ConversationMessage{}, &types.Suggestion{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM suggestion")
		db.Exec("DELETE FROM conversation_message")
		db.Exec("DELETE FROM user_profile")
	})

	return db, &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func TestGetOrCreateDefaultSeedsProfile(t *testing.T) {
	db, log := testDB(t)
	repo := NewUserProfileRepo(db, log)
	ctx := context.Background()

	profile, err := repo.GetOrCreateDefault(ctx, nil, "alice")
	if err != nil {
		t.Fatalf("GetOrCreateDefault() error = %v", err)
	}
	if profile.DisplayName != "User" {
		t.Errorf("DisplayName = %q, want %q", profile.DisplayName, "User")
	}
	if profile.ConsentTier != consent.TierSuggestive {
		t.Errorf("ConsentTier = %q, want %q", profile.ConsentTier, consent.TierSuggestive)
	}
	if profile.ProfileVersion != 1 {
		t.Errorf("ProfileVersion = %d, want 1", profile.ProfileVersion)
	}
	if profile.ContextSummary != defaultContextSummary {
		t.Errorf("ContextSummary = %q", profile.ContextSummary)
	}

	var traits map[string]any
	if err := json.Unmarshal(profile.Traits, &traits); err != nil {
		t.Fatalf("decode traits: %v", err)
	}
	if traits["decision_style"] != "analytical" {
		t.Errorf("traits = %v, missing seeded keys", traits)
	}

	again, err := repo.GetOrCreateDefault(ctx, nil, "alice")
	if err != nil {
		t.Fatalf("second GetOrCreateDefault() error = %v", err)
	}
	if again.ID != profile.ID {
		t.Error("repeated call created a second profile")
	}
}

func TestUpdateIncrementsProfileVersion(t *testing.T) {
	db, log := testDB(t)
	repo := NewUserProfileRepo(db, log)
	ctx := context.Background()

	profile, err := repo.GetOrCreateDefault(ctx, nil, "bob")
	if err != nil {
		t.Fatal(err)
	}

	updated, err := repo.Update(ctx, nil, profile.ID, map[string]any{"display_name": "Bob"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.DisplayName != "Bob" {
		t.Errorf("DisplayName = %q", updated.DisplayName)
	}
	if updated.ProfileVersion != profile.ProfileVersion+1 {
		t.Errorf("ProfileVersion = %d, want %d", updated.ProfileVersion, profile.ProfileVersion+1)
	}
}

func TestGetRecentReturnsOldestFirst(t *testing.T) {
	db, log := testDB(t)
	profileRepo := NewUserProfileRepo(db, log)
	convRepo := NewConversationRepo(db, log)
	ctx := context.Background()

	profile, err := profileRepo.GetOrCreateDefault(ctx, nil, "carol")
	if err != nil {
		t.Fatal(err)
	}

	contents := []string{"first", "second", "third", "fourth"}
	for _, content := range contents {
		if _, err := convRepo.CreateMessage(ctx, nil, profile.ID, types.RoleUser, content, nil); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := convRepo.GetRecent(ctx, nil, profile.ID, 3)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	want := []string{"second", "third", "fourth"}
	for i, msg := range recent {
		if msg.Content != want[i] {
			t.Errorf("recent[%d] = %q, want %q", i, msg.Content, want[i])
		}
	}
}

func TestSuggestionTransitionGuard(t *testing.T) {
	db, log := testDB(t)
	profileRepo := NewUserProfileRepo(db, log)
	suggRepo := NewSuggestionRepo(db, log)
	ctx := context.Background()

	profile, err := profileRepo.GetOrCreateDefault(ctx, nil, "dave")
	if err != nil {
		t.Fatal(err)
	}
	created, err := suggRepo.Create(ctx, nil, &types.Suggestion{
		UserProfileID:  profile.ID,
		SuggestionText: "Try a walk",
		ConsentTier:    consent.TierSuggestive,
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.Status != types.SuggestionStatusPending {
		t.Fatalf("Status = %q, want pending", created.Status)
	}

	approved, err := suggRepo.Transition(ctx, nil, created.ID, types.SuggestionStatusApproved, "ok")
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if approved.Status != types.SuggestionStatusApproved || approved.UserResponse != "ok" {
		t.Errorf("approved = %q/%q", approved.Status, approved.UserResponse)
	}
	if approved.RespondedAt == nil {
		t.Error("RespondedAt not set on approve")
	}

	_, err = suggRepo.Transition(ctx, nil, created.ID, types.SuggestionStatusDenied, "no")
	var conflict *types.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want *StateConflictError", err)
	}
	if conflict.Current != types.SuggestionStatusApproved {
		t.Errorf("conflict.Current = %q", conflict.Current)
	}
}

func TestDeleteProfilePurgesChildren(t *testing.T) {
	db, log := testDB(t)
	profileRepo := NewUserProfileRepo(db, log)
	convRepo := NewConversationRepo(db, log)
	suggRepo := NewSuggestionRepo(db, log)
	ctx := context.Background()

	profile, err := profileRepo.GetOrCreateDefault(ctx, nil, "erin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := convRepo.CreateMessage(ctx, nil, profile.ID, types.RoleUser, "hello", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := suggRepo.Create(ctx, nil, &types.Suggestion{
		UserProfileID:  profile.ID,
		SuggestionText: "Stretch",
		ConsentTier:    consent.TierPassive,
	}); err != nil {
		t.Fatal(err)
	}

	if err := profileRepo.Delete(ctx, nil, profile.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	gone, err := profileRepo.GetByUserID(ctx, nil, "erin")
	if err != nil {
		t.Fatal(err)
	}
	if gone != nil {
		t.Error("profile still present after delete")
	}
	count, err := convRepo.CountByProfile(ctx, nil, profile.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("messages remaining = %d, want 0", count)
	}
}
