package rbac

import (
	"net/http"
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestIsGranted_NilRole(t *testing.T) {
	assert.False(t, IsGranted(nil, ResourceProduct, ActionRead))
}

func TestIsGranted_AdminBypassesTable(t *testing.T) {
	for _, name := range []string{"admin", "Admin", "ADMIN"} {
		r := &model.Role{Name: name}
		assert.True(t, IsGranted(r, ResourceInvoice, ActionDelete), name)
	}
}

func TestIsGranted_MatchesResourceAndAction(t *testing.T) {
	r := &model.Role{
		Name: "sales rep",
		Permissions: []model.Permission{
			{Resource: "product", CanRead: true},
			{Resource: "invoice", CanCreate: true, CanRead: true},
		},
	}

	assert.True(t, IsGranted(r, ResourceProduct, ActionRead))
	assert.False(t, IsGranted(r, ResourceProduct, ActionUpdate))
	assert.True(t, IsGranted(r, ResourceInvoice, ActionCreate))
	assert.False(t, IsGranted(r, ResourceInvoice, ActionDelete))
	assert.False(t, IsGranted(r, ResourceUser, ActionRead), "absent resource grants nothing")
}

func TestIsGranted_ResourceNameIsCaseInsensitive(t *testing.T) {
	r := &model.Role{
		Name:        "sales rep",
		Permissions: []model.Permission{{Resource: "Product", CanRead: true}},
	}
	assert.True(t, IsGranted(r, ResourceProduct, ActionRead))
}

func TestIsGranted_DuplicateRowsResolveByOR(t *testing.T) {
	r := &model.Role{
		Name: "sales rep",
		Permissions: []model.Permission{
			{Resource: "product", CanRead: true},
			{Resource: "product", CanUpdate: true},
		},
	}

	assert.True(t, IsGranted(r, ResourceProduct, ActionRead))
	assert.True(t, IsGranted(r, ResourceProduct, ActionUpdate))
	assert.False(t, IsGranted(r, ResourceProduct, ActionDelete))
}

func TestActionForMethod(t *testing.T) {
	cases := map[string]Action{
		http.MethodGet:    ActionRead,
		http.MethodPost:   ActionCreate,
		http.MethodPut:    ActionUpdate,
		http.MethodPatch:  ActionUpdate,
		http.MethodDelete: ActionDelete,
	}
	for method, want := range cases {
		got, ok := ActionForMethod(method)
		assert.True(t, ok, method)
		assert.Equal(t, want, got, method)
	}

	_, ok := ActionForMethod(http.MethodOptions)
	assert.False(t, ok)
	_, ok = ActionForMethod(http.MethodHead)
	assert.False(t, ok)
}

func TestParseResource(t *testing.T) {
	got, ok := ParseResource("Invoice")
	assert.True(t, ok)
	assert.Equal(t, ResourceInvoice, got)

	_, ok = ParseResource("warehouse")
	assert.False(t, ok)
}
