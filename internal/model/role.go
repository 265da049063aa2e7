package model

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminRoleName is the sentinel superuser role. Matching is
// case-insensitive everywhere a role name is consulted.
const AdminRoleName = "admin"

// Role represents a node in the role hierarchy. Roles form a tree via
// ParentRoleID; a role inherits visibility over records created by any
// of its descendant roles.
type Role struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string       `gorm:"type:varchar(100);not null" json:"name"`
	ParentRoleID *uuid.UUID   `gorm:"type:uuid;index" json:"parent_role_id"`
	ParentRole   *Role        `gorm:"foreignKey:ParentRoleID;constraint:OnDelete:SET NULL" json:"-"`
	Active       bool         `gorm:"default:true" json:"active"`
	Permissions  []Permission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"permissions"`
	Audit
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether this role is the hardcoded superuser role.
func (r *Role) IsAdmin() bool {
	return strings.EqualFold(r.Name, AdminRoleName)
}

// Permission grants per-action capabilities on one resource type to one
// role. Multiple rows may exist for the same (role, resource) pair; a
// capability counts as granted if any matching row grants it.
type Permission struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RoleID    uuid.UUID `gorm:"type:uuid;not null;index" json:"role_id"`
	Resource  string    `gorm:"type:varchar(100);not null;index" json:"resource"`
	CanCreate bool      `gorm:"default:false" json:"create"`
	CanRead   bool      `gorm:"default:false" json:"read"`
	CanUpdate bool      `gorm:"default:false" json:"update"`
	CanDelete bool      `gorm:"default:false" json:"delete"`
	Audit
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BeforeSave lowercases the resource name so lookups never miss on case.
func (p *Permission) BeforeSave(tx *gorm.DB) error {
	p.Resource = strings.ToLower(p.Resource)
	return nil
}
