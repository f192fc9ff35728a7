package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Area is an organizational unit. DirectorID grants visibility over every
// requirement filed under the area.
type Area struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string     `gorm:"uniqueIndex;not null" json:"name"`
	DirectorID *uuid.UUID `gorm:"type:uuid;index" json:"directorId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (a *Area) BeforeCreate(*gorm.DB) error { ensureID(&a.ID); return nil }

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Code        *string   `json:"code,omitempty"`
	Description *string   `json:"description,omitempty"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Project) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Category) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

// Supplier is a vendor. TaxID holds the NIT.
type Supplier struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	TaxID     *string   `gorm:"uniqueIndex" json:"taxId,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Supplier) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }
