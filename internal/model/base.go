package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit carries the system-managed ownership and timestamp columns shared
// by every primary entity. The creator reference drives row-level
// visibility; both references are nulled when the referenced user is
// removed.
type Audit struct {
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;index" json:"created_by"`
	UpdatedByID *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
}

// Stamp records the acting user on a freshly created row.
func (a *Audit) Stamp(actorID uuid.UUID) {
	a.CreatedByID = &actorID
	a.UpdatedByID = &actorID
}

// Touch records the acting user on an updated row.
func (a *Audit) Touch(actorID uuid.UUID) {
	a.UpdatedByID = &actorID
}
