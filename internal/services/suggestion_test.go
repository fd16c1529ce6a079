package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/types"
)

func newSuggestionFixture(t *testing.T) (SuggestionService, *fakeSuggRepo, uuid.UUID) {
	t.Helper()
	profileRepo := &fakeProfileRepo{}
	suggRepo := &fakeSuggRepo{}
	svc := NewSuggestionService(newTestLogger(), profileRepo, suggRepo)

	profile, err := profileRepo.GetOrCreateDefault(context.Background(), nil, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	created, err := suggRepo.Create(context.Background(), nil, &types.Suggestion{
		UserProfileID:    profile.ID,
		SuggestionText:   "Try a short walk",
		ConsentTier:      consent.TierSuggestive,
		EthicalReasoning: "Low intrusion.",
		Status:           types.SuggestionStatusPending,
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc, suggRepo, created.ID
}

func TestSuggestionTransitions(t *testing.T) {
	tests := []struct {
		name         string
		act          func(svc SuggestionService, id uuid.UUID) (*types.Suggestion, error)
		wantStatus   string
		wantResponse string
	}{
		{
			name: "approve",
			act: func(svc SuggestionService, id uuid.UUID) (*types.Suggestion, error) {
				return svc.Approve(context.Background(), id, "sounds good")
			},
			wantStatus:   types.SuggestionStatusApproved,
			wantResponse: "sounds good",
		},
		{
			name: "deny",
			act: func(svc SuggestionService, id uuid.UUID) (*types.Suggestion, error) {
				return svc.Deny(context.Background(), id, "not now")
			},
			wantStatus:   types.SuggestionStatusDenied,
			wantResponse: "not now",
		},
		{
			name: "expire",
			act: func(svc SuggestionService, id uuid.UUID) (*types.Suggestion, error) {
				return svc.Expire(context.Background(), id)
			},
			wantStatus: types.SuggestionStatusExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, id := newSuggestionFixture(t)

			updated, err := tt.act(svc, id)
			if err != nil {
				t.Fatalf("transition error = %v", err)
			}
			if updated.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", updated.Status, tt.wantStatus)
			}
			if updated.UserResponse != tt.wantResponse {
				t.Errorf("UserResponse = %q, want %q", updated.UserResponse, tt.wantResponse)
			}
		})
	}
}

func TestSuggestionTransitionIsOneShot(t *testing.T) {
	svc, _, id := newSuggestionFixture(t)

	if _, err := svc.Approve(context.Background(), id, "yes"); err != nil {
		t.Fatalf("first approve error = %v", err)
	}

	_, err := svc.Deny(context.Background(), id, "changed my mind")
	var conflict *types.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want *StateConflictError", err)
	}
	if conflict.Current != types.SuggestionStatusApproved {
		t.Errorf("Current = %q, want approved", conflict.Current)
	}
	if conflict.Attempted != types.SuggestionStatusDenied {
		t.Errorf("Attempted = %q, want denied", conflict.Attempted)
	}
}

func TestSuggestionTransitionMissing(t *testing.T) {
	svc, _, _ := newSuggestionFixture(t)

	_, err := svc.Approve(context.Background(), uuid.New(), "yes")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("error = %v, want record not found", err)
	}
}

func TestSuggestionListFiltersByStatus(t *testing.T) {
	svc, suggRepo, id := newSuggestionFixture(t)

	profileID := suggRepo.created[0].UserProfileID
	if _, err := suggRepo.Create(context.Background(), nil, &types.Suggestion{
		UserProfileID:  profileID,
		SuggestionText: "Another idea",
		ConsentTier:    consent.TierSuggestive,
		Status:         types.SuggestionStatusPending,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(context.Background(), id, "ok"); err != nil {
		t.Fatal(err)
	}

	pending, err := svc.List(context.Background(), "user-1", types.SuggestionStatusPending, 0, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending.Suggestions) != 1 {
		t.Errorf("pending suggestions = %d, want 1", len(pending.Suggestions))
	}
	if pending.PendingCount != 1 {
		t.Errorf("PendingCount = %d, want 1", pending.PendingCount)
	}

	all, err := svc.List(context.Background(), "user-1", "", 0, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Suggestions) != 2 {
		t.Errorf("all suggestions = %d, want 2", len(all.Suggestions))
	}
}
