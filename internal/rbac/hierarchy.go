package rbac

import (
	"backend/internal/model"

	"github.com/google/uuid"
)

// Descendants computes the set of role ids reachable by walking
// parent-role links downward from rootID, over the given snapshot of
// the role table. The result never contains rootID itself. A nil root
// yields an empty set. A cyclic parent chain in stored data terminates
// through the visited set instead of recursing forever.
func Descendants(roles []model.Role, rootID *uuid.UUID) map[uuid.UUID]bool {
	result := make(map[uuid.UUID]bool)
	if rootID == nil {
		return result
	}

	children := make(map[uuid.UUID][]uuid.UUID, len(roles))
	for _, r := range roles {
		if r.ParentRoleID != nil {
			children[*r.ParentRoleID] = append(children[*r.ParentRoleID], r.ID)
		}
	}

	visited := map[uuid.UUID]bool{*rootID: true}
	queue := []uuid.UUID{*rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			result[child] = true
			queue = append(queue, child)
		}
	}
	return result
}

// WouldCreateCycle reports whether pointing roleID at newParentID would
// make the role its own ancestor. Used at the mutation boundary so the
// stored tree stays acyclic.
func WouldCreateCycle(roles []model.Role, roleID uuid.UUID, newParentID *uuid.UUID) bool {
	if newParentID == nil {
		return false
	}
	if *newParentID == roleID {
		return true
	}

	parents := make(map[uuid.UUID]*uuid.UUID, len(roles))
	for _, r := range roles {
		parents[r.ID] = r.ParentRoleID
	}

	seen := make(map[uuid.UUID]bool)
	current := newParentID
	for current != nil {
		if *current == roleID {
			return true
		}
		if seen[*current] {
			// Pre-existing cycle upstream; reparenting onto it is refused too.
			return true
		}
		seen[*current] = true
		current = parents[*current]
	}
	return false
}
