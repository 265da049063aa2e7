package rbac

import (
	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Visible returns a gorm scope narrowing a listing query on the given
// resource to the rows the actor is entitled to see:
//
//  1. unauthenticated actor: nothing
//  2. admin role or superuser flag: everything
//  3. globally-readable resources on read: everything
//  4. otherwise: rows created by the actor, plus rows created by any
//     user whose role is in the actor's descendant-role set
//
// The single WHERE clause makes duplicate elimination implicit; a row
// matching both arms appears once.
func Visible(actor *model.User, resource Resource, action Action, roles []model.Role) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor == nil {
			return db.Where("1 = 0")
		}
		if actor.IsAdmin() {
			return db
		}
		if resource.GloballyReadable() && action == ActionRead {
			return db
		}

		descendants := Descendants(roles, actor.RoleID)
		if len(descendants) == 0 {
			return db.Where("created_by_id = ?", actor.ID)
		}

		ids := make([]uuid.UUID, 0, len(descendants))
		for id := range descendants {
			ids = append(ids, id)
		}
		return db.Where(
			"created_by_id = ? OR created_by_id IN (SELECT id FROM users WHERE role_id IN ?)",
			actor.ID, ids,
		)
	}
}
