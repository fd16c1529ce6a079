package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserProfile is the persistent user model: consent ceiling, free-form
// trait/preference/pattern maps, and a version counter bumped on every
// mutating write. Single-user deployments hold exactly one row.
type UserProfile struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             string         `gorm:"uniqueIndex;not null;column:user_id" json:"user_id"`
	DisplayName        string         `gorm:"column:display_name" json:"display_name"`
	ConsentTier        string         `gorm:"not null;default:'Passive';column:consent_tier" json:"consent_tier"`
	Traits             datatypes.JSON `gorm:"type:jsonb;column:traits" json:"traits"`
	Preferences        datatypes.JSON `gorm:"type:jsonb;column:preferences" json:"preferences"`
	BehavioralPatterns datatypes.JSON `gorm:"type:jsonb;column:behavioral_patterns" json:"behavioral_patterns"`
	ContextSummary     string         `gorm:"column:context_summary" json:"context_summary"`
	ProfileVersion     int            `gorm:"not null;default:1;column:profile_version" json:"profile_version"`
	CreatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profile" }
