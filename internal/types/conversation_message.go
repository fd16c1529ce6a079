package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationMessage is one chat turn for one role. Rows are append-only and
// ordered by CreatedAt; only Metadata may be attached after the fact.
type ConversationMessage struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserProfileID uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_profile_id"`
	UserProfile   *UserProfile   `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserProfileID;references:ID" json:"user_profile,omitempty"`
	Role          string         `gorm:"not null;index;column:role" json:"role"`
	Content       string         `gorm:"not null;column:content" json:"content"`
	Metadata      datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ConversationMessage) TableName() string { return "conversation_message" }
