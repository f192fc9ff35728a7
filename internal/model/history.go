package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryLog is an append-only audit entry. Group-level actions set GroupID
// and list every touched requirement in AffectedRequirementIDs.
type HistoryLog struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequirementID          *uuid.UUID `gorm:"type:uuid;index" json:"requirementId,omitempty"`
	GroupID                *uuid.UUID `gorm:"type:uuid;index" json:"groupId,omitempty"`
	Action                 string     `gorm:"type:varchar(40);not null" json:"action"`
	Details                string     `gorm:"not null" json:"details"`
	ActorEmail             *string    `json:"actorEmail,omitempty"`
	AffectedRequirementIDs UUIDList   `gorm:"type:text" json:"affectedRequirementIds,omitempty"`
	CreatedAt              time.Time  `gorm:"index" json:"createdAt"`
}

func (h *HistoryLog) BeforeCreate(*gorm.DB) error { ensureID(&h.ID); return nil }

// Notification is an in-app message for one user.
type Notification struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	Title         string     `gorm:"not null" json:"title"`
	Message       string     `gorm:"not null" json:"message"`
	Type          string     `gorm:"type:varchar(10);not null;default:'INFO'" json:"type"`
	Read          bool       `gorm:"not null;default:false" json:"read"`
	RequirementID *uuid.UUID `gorm:"type:uuid;index" json:"requirementId,omitempty"`
	Link          *string    `json:"link,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error { ensureID(&n.ID); return nil }

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Area{}, &Project{}, &Category{}, &Supplier{},
		&Budget{}, &RequirementGroup{}, &Requirement{}, &Attachment{},
		&Payment{}, &Invoice{}, &HistoryLog{}, &Notification{},
	}
}
