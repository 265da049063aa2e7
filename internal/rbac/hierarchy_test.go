package rbac

import (
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func role(id uuid.UUID, name string, parent *uuid.UUID) model.Role {
	return model.Role{ID: id, Name: name, ParentRoleID: parent}
}

func TestDescendants_Tree(t *testing.T) {
	admin := uuid.New()
	manager := uuid.New()
	repA := uuid.New()
	repB := uuid.New()
	intern := uuid.New()
	unrelated := uuid.New()

	roles := []model.Role{
		role(admin, "admin", nil),
		role(manager, "sales manager", &admin),
		role(repA, "sales rep a", &manager),
		role(repB, "sales rep b", &manager),
		role(intern, "intern", &repA),
		role(unrelated, "accounting", nil),
	}

	set := Descendants(roles, &manager)
	assert.Len(t, set, 3)
	assert.True(t, set[repA])
	assert.True(t, set[repB])
	assert.True(t, set[intern])
	assert.False(t, set[manager], "a role is not its own descendant")
	assert.False(t, set[admin])
	assert.False(t, set[unrelated])
}

func TestDescendants_NilRoot(t *testing.T) {
	roles := []model.Role{role(uuid.New(), "admin", nil)}
	assert.Empty(t, Descendants(roles, nil))
}

func TestDescendants_LeafRole(t *testing.T) {
	parent := uuid.New()
	leaf := uuid.New()
	roles := []model.Role{
		role(parent, "manager", nil),
		role(leaf, "rep", &parent),
	}
	assert.Empty(t, Descendants(roles, &leaf))
}

func TestDescendants_TerminatesOnCyclicData(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	// a -> b -> c -> a, corrupted on purpose
	roles := []model.Role{
		role(a, "a", &c),
		role(b, "b", &a),
		role(c, "c", &b),
	}

	set := Descendants(roles, &a)
	assert.Len(t, set, 2)
	assert.True(t, set[b])
	assert.True(t, set[c])
	assert.False(t, set[a], "the root must never appear even through a cycle")
}

func TestWouldCreateCycle(t *testing.T) {
	top := uuid.New()
	mid := uuid.New()
	leaf := uuid.New()
	other := uuid.New()

	roles := []model.Role{
		role(top, "top", nil),
		role(mid, "mid", &top),
		role(leaf, "leaf", &mid),
		role(other, "other", nil),
	}

	assert.True(t, WouldCreateCycle(roles, top, &top), "self-parent")
	assert.True(t, WouldCreateCycle(roles, top, &leaf), "reparenting the root under its own leaf")
	assert.True(t, WouldCreateCycle(roles, mid, &leaf))
	assert.False(t, WouldCreateCycle(roles, leaf, &top))
	assert.False(t, WouldCreateCycle(roles, other, &leaf))
	assert.False(t, WouldCreateCycle(roles, mid, nil), "detaching is always safe")
}

func TestWouldCreateCycle_RefusesBrokenUpstreamChain(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	fresh := uuid.New()

	roles := []model.Role{
		role(a, "a", &b),
		role(b, "b", &a),
	}

	assert.True(t, WouldCreateCycle(roles, fresh, &a))
}
