package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCreate_NestsUnderCreatorRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.roles.Create(ctx, env.manager, CreateRoleRequest{
		Name: "junior rep",
		Permissions: []PermissionInput{
			{Resource: "invoice", CanCreate: true, CanRead: true},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, created.ParentRoleID)
	assert.Equal(t, env.managerRole.ID, *created.ParentRoleID, "parent comes from the creator, never the payload")
	require.Len(t, created.Permissions, 1)
	assert.Equal(t, "invoice", created.Permissions[0].Resource)
	assert.True(t, created.Permissions[0].CanCreate)
	assert.False(t, created.Permissions[0].CanDelete)
}

func TestRoleCreate_NewRoleJoinsCreatorVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.roles.Create(ctx, env.manager, CreateRoleRequest{Name: "junior rep"})
	require.NoError(t, err)

	junior, err := env.users.Create(ctx, env.admin, CreateUserRequest{
		Name:     "June Junior",
		Email:    "june@example.com",
		Password: "secret1",
		RoleID:   created.ID.String(),
	})
	require.NoError(t, err)

	// the manager reaches the new role's users through the role chain,
	// not through record ownership (the admin created this one)
	_, err = env.users.Get(ctx, env.manager, junior.ID)
	assert.NoError(t, err)
	_, err = env.users.Get(ctx, env.admin, junior.ID)
	assert.NoError(t, err)
	_, err = env.users.Get(ctx, env.peer, junior.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRoleCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.roles.Create(ctx, env.admin, CreateRoleRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	_, err = env.roles.Create(ctx, env.admin, CreateRoleRequest{
		Name:        "broken",
		Permissions: []PermissionInput{{Resource: "warehouse", CanRead: true}},
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "permissions")
}

func TestRoleUpdate_ReplacesPermissionRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.roles.Create(ctx, env.admin, CreateRoleRequest{
		Name: "clerk",
		Permissions: []PermissionInput{
			{Resource: "customer", CanRead: true},
			{Resource: "product", CanRead: true},
		},
	})
	require.NoError(t, err)

	updated, err := env.roles.Update(ctx, env.admin, created.ID, UpdateRoleRequest{
		Name: "senior clerk",
		Permissions: []PermissionInput{
			{Resource: "customer", CanRead: true, CanUpdate: true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "senior clerk", updated.Name)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "customer", updated.Permissions[0].Resource)
	assert.True(t, updated.Permissions[0].CanUpdate)
}

func TestRoleDelete_AdminRoleProtected(t *testing.T) {
	env := newTestEnv(t)

	err := env.roles.Delete(context.Background(), env.admin, env.adminRole.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRoleGet_GatedByCreatorChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.roles.Create(ctx, env.manager, CreateRoleRequest{Name: "junior rep"})
	require.NoError(t, err)

	_, err = env.roles.Get(ctx, env.manager, created.ID)
	assert.NoError(t, err)
	_, err = env.roles.Get(ctx, env.peer, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
