package rbac

import (
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type gateFixture struct {
	gate *Gate

	adminRole   uuid.UUID
	managerRole uuid.UUID
	repRole     uuid.UUID
	peerRole    uuid.UUID

	admin   *model.User
	manager *model.User
	rep     *model.User
	peer    *model.User
}

func newGateFixture() *gateFixture {
	f := &gateFixture{
		adminRole:   uuid.New(),
		managerRole: uuid.New(),
		repRole:     uuid.New(),
		peerRole:    uuid.New(),
	}

	roles := []model.Role{
		role(f.adminRole, "admin", nil),
		role(f.managerRole, "sales manager", &f.adminRole),
		role(f.repRole, "sales rep", &f.managerRole),
		role(f.peerRole, "support rep", &f.managerRole),
	}
	f.gate = NewGate(roles)

	f.admin = &model.User{ID: uuid.New(), RoleID: &f.adminRole, Role: &roles[0]}
	f.manager = &model.User{ID: uuid.New(), RoleID: &f.managerRole, Role: &roles[1]}
	f.rep = &model.User{ID: uuid.New(), RoleID: &f.repRole, Role: &roles[2]}
	f.peer = &model.User{ID: uuid.New(), RoleID: &f.peerRole, Role: &roles[3]}
	return f
}

func (f *gateFixture) invoiceBy(creator *model.User) Record {
	return Record{
		Resource:      ResourceInvoice,
		ID:            uuid.New(),
		CreatedByID:   &creator.ID,
		CreatorRoleID: creator.RoleID,
	}
}

func TestCanAccess_NilActor(t *testing.T) {
	f := newGateFixture()
	assert.False(t, f.gate.CanAccess(nil, f.invoiceBy(f.rep)))
}

func TestCanAccess_AdminSeesEverything(t *testing.T) {
	f := newGateFixture()
	assert.True(t, f.gate.CanAccess(f.admin, f.invoiceBy(f.rep)))
	assert.True(t, f.gate.CanAccess(f.admin, Record{Resource: ResourceInvoice, ID: uuid.New()}))
}

func TestCanAccess_SuperuserFlag(t *testing.T) {
	f := newGateFixture()
	su := &model.User{ID: uuid.New(), Superuser: true}
	assert.True(t, f.gate.CanAccess(su, f.invoiceBy(f.rep)))
}

func TestCanAccess_Creator(t *testing.T) {
	f := newGateFixture()
	assert.True(t, f.gate.CanAccess(f.rep, f.invoiceBy(f.rep)))
}

func TestCanAccess_AncestorOfCreatorRole(t *testing.T) {
	f := newGateFixture()
	assert.True(t, f.gate.CanAccess(f.manager, f.invoiceBy(f.rep)))
	assert.True(t, f.gate.CanAccess(f.manager, f.invoiceBy(f.peer)))
}

func TestCanAccess_PeerDenied(t *testing.T) {
	f := newGateFixture()
	assert.False(t, f.gate.CanAccess(f.peer, f.invoiceBy(f.rep)))
	assert.False(t, f.gate.CanAccess(f.rep, f.invoiceBy(f.manager)), "visibility never flows upward")
}

func TestCanAccess_UserRecordSelf(t *testing.T) {
	f := newGateFixture()
	rec := Record{
		Resource: ResourceUser,
		ID:       f.rep.ID,
		RoleID:   f.rep.RoleID,
	}
	assert.True(t, f.gate.CanAccess(f.rep, rec))
	assert.False(t, f.gate.CanAccess(f.peer, rec))
}

func TestCanAccess_UserRecordDescendantRole(t *testing.T) {
	f := newGateFixture()
	rec := Record{
		Resource: ResourceUser,
		ID:       f.rep.ID,
		RoleID:   f.rep.RoleID,
	}
	assert.True(t, f.gate.CanAccess(f.manager, rec))
}

func TestCanPerform(t *testing.T) {
	f := newGateFixture()

	f.rep.Role.Permissions = []model.Permission{{Resource: "invoice", CanCreate: true}}
	assert.True(t, f.gate.CanPerform(f.rep, ResourceInvoice, ActionCreate))
	assert.False(t, f.gate.CanPerform(f.rep, ResourceInvoice, ActionDelete))
	assert.True(t, f.gate.CanPerform(f.admin, ResourceInvoice, ActionDelete))
	assert.False(t, f.gate.CanPerform(nil, ResourceInvoice, ActionRead))

	su := &model.User{ID: uuid.New(), Superuser: true}
	assert.True(t, f.gate.CanPerform(su, ResourceRole, ActionDelete))
}
