package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget is a financial allocation for a (project, area) pair in a year.
// Available is only mutated through atomic expression updates.
type Budget struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code        *string         `json:"code,omitempty"`
	Description *string         `json:"description,omitempty"`
	Year        int             `gorm:"not null;index" json:"year"`
	ProjectID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_budget_project_area" json:"projectId"`
	AreaID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_budget_project_area" json:"areaId"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid" json:"categoryId,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"amount"`
	Available   decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"available"`
	CreatedByID uuid.UUID       `gorm:"type:uuid;not null" json:"createdById"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Area    *Area    `gorm:"foreignKey:AreaID" json:"area,omitempty"`
}

func (b *Budget) BeforeCreate(*gorm.DB) error { ensureID(&b.ID); return nil }
