package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SuggestionStatusPending  = "pending"
	SuggestionStatusApproved = "approved"
	SuggestionStatusDenied   = "denied"
	SuggestionStatusExpired  = "expired"
)

// StateConflictError reports an attempted lifecycle transition on a
// suggestion that already left the pending state.
type StateConflictError struct {
	SuggestionID uuid.UUID
	Current      string
	Attempted    string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("suggestion %s is '%s', cannot transition to '%s': only pending suggestions can be resolved", e.SuggestionID, e.Current, e.Attempted)
}

// Suggestion is a permitted, gate-approved action proposal persisted for the
// user to resolve. Status moves pending -> approved|denied|expired exactly
// once; there is no path back.
type Suggestion struct {
	ID               uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserProfileID    uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_profile_id"`
	UserProfile      *UserProfile         `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserProfileID;references:ID" json:"user_profile,omitempty"`
	ConversationID   *uuid.UUID           `gorm:"type:uuid;index" json:"conversation_id,omitempty"`
	Conversation     *ConversationMessage `gorm:"constraint:OnDelete:SET NULL;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	SuggestionText   string               `gorm:"not null;column:suggestion_text" json:"suggestion_text"`
	ConsentTier      string               `gorm:"not null;index;column:consent_tier" json:"consent_tier"`
	EthicalReasoning string               `gorm:"not null;column:ethical_reasoning" json:"ethical_reasoning"`
	Status           string               `gorm:"not null;default:'pending';index;column:status" json:"status"`
	UserResponse     string               `gorm:"column:user_response" json:"user_response,omitempty"`
	RespondedAt      *time.Time           `gorm:"column:responded_at" json:"responded_at,omitempty"`
	Metadata         datatypes.JSON       `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt        time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt        time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Suggestion) TableName() string { return "suggestion" }

func (s *Suggestion) IsPending() bool { return s.Status == SuggestionStatusPending }
