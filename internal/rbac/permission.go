package rbac

import (
	"strings"

	"backend/internal/model"
)

// IsGranted resolves the permission table for one (role, resource,
// action) triple. A nil role grants nothing. The admin role grants
// everything regardless of table contents. Otherwise the capability is
// the OR over every permission row matching the resource, since
// duplicate rows per (role, resource) pair are allowed.
func IsGranted(role *model.Role, resource Resource, action Action) bool {
	if role == nil {
		return false
	}
	if role.IsAdmin() {
		return true
	}

	name := string(resource)
	for _, p := range role.Permissions {
		if !strings.EqualFold(p.Resource, name) {
			continue
		}
		switch action {
		case ActionCreate:
			if p.CanCreate {
				return true
			}
		case ActionRead:
			if p.CanRead {
				return true
			}
		case ActionUpdate:
			if p.CanUpdate {
				return true
			}
		case ActionDelete:
			if p.CanDelete {
				return true
			}
		}
	}
	return false
}
