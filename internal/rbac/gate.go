package rbac

import (
	"backend/internal/model"

	"github.com/google/uuid"
)

// Record is the tagged view of a stored row that the fine-grained gate
// decides over. CreatorRoleID is the role of the user who created the
// record; RoleID is set only when the record itself is a user identity
// (that user's own role).
type Record struct {
	Resource      Resource
	ID            uuid.UUID
	CreatedByID   *uuid.UUID
	CreatorRoleID *uuid.UUID
	RoleID        *uuid.UUID
}

// Gate makes per-request authorization decisions over a snapshot of the
// role table fetched at the start of the request. Descendant sets are
// memoized so repeated fine-grained checks within one decision reuse
// one computed closure.
type Gate struct {
	roles []model.Role
	desc  map[uuid.UUID]map[uuid.UUID]bool
}

func NewGate(roles []model.Role) *Gate {
	return &Gate{
		roles: roles,
		desc:  make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (g *Gate) descendants(roleID *uuid.UUID) map[uuid.UUID]bool {
	if roleID == nil {
		return nil
	}
	if cached, ok := g.desc[*roleID]; ok {
		return cached
	}
	set := Descendants(g.roles, roleID)
	g.desc[*roleID] = set
	return set
}

// CanPerform is the coarse pre-action check: may this actor perform
// the action on the resource type at all. Fails closed for an
// unauthenticated actor.
func (g *Gate) CanPerform(actor *model.User, resource Resource, action Action) bool {
	if actor == nil {
		return false
	}
	if actor.Superuser {
		return true
	}
	return IsGranted(actor.Role, resource, action)
}

// CanAccess is the fine-grained per-record check used for retrieve,
// update and delete of a single record. It encodes "a manager acts on
// everything their reporting chain created", recursively: access is
// granted to the record's creator, and to any actor whose role is an
// ancestor of the creator's role. User identity records additionally
// grant self-access and ancestor access over the record's own role.
func (g *Gate) CanAccess(actor *model.User, rec Record) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}

	if rec.CreatedByID != nil && *rec.CreatedByID == actor.ID {
		return true
	}
	if rec.CreatorRoleID != nil {
		if g.descendants(actor.RoleID)[*rec.CreatorRoleID] {
			return true
		}
	}

	if rec.Resource == ResourceUser {
		if rec.ID == actor.ID {
			return true
		}
		if rec.RoleID != nil && g.descendants(actor.RoleID)[*rec.RoleID] {
			return true
		}
	}

	return false
}
