package rbac

import (
	"testing"

	"backend/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupVisibilityDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Role{}, &model.User{}, &model.Invoice{}, &model.Customer{}))
	return db
}

func listVisibleInvoices(t *testing.T, db *gorm.DB, scope func(*gorm.DB) *gorm.DB) []model.Invoice {
	t.Helper()
	var out []model.Invoice
	require.NoError(t, db.Scopes(scope).Find(&out).Error)
	return out
}

func TestVisible_OwnershipChain(t *testing.T) {
	db := setupVisibilityDB(t)

	managerRole := model.Role{Name: "sales manager"}
	require.NoError(t, db.Create(&managerRole).Error)
	repRole := model.Role{Name: "sales rep", ParentRoleID: &managerRole.ID}
	require.NoError(t, db.Create(&repRole).Error)
	peerRole := model.Role{Name: "support rep", ParentRoleID: &managerRole.ID}
	require.NoError(t, db.Create(&peerRole).Error)

	manager := model.User{Name: "m", Email: "m@x.io", Password: "x", RoleID: &managerRole.ID}
	require.NoError(t, db.Create(&manager).Error)
	rep := model.User{Name: "r", Email: "r@x.io", Password: "x", RoleID: &repRole.ID}
	require.NoError(t, db.Create(&rep).Error)
	peer := model.User{Name: "p", Email: "p@x.io", Password: "x", RoleID: &peerRole.ID}
	require.NoError(t, db.Create(&peer).Error)

	customer := model.Customer{Name: "c", Email: "c@x.io", Mobile: "1"}
	require.NoError(t, db.Create(&customer).Error)

	repInvoice := model.Invoice{CustomerID: customer.ID, Status: model.InvoiceStatusPending}
	repInvoice.Stamp(rep.ID)
	require.NoError(t, db.Create(&repInvoice).Error)
	peerInvoice := model.Invoice{CustomerID: customer.ID, Status: model.InvoiceStatusPending}
	peerInvoice.Stamp(peer.ID)
	require.NoError(t, db.Create(&peerInvoice).Error)

	var roles []model.Role
	require.NoError(t, db.Find(&roles).Error)

	// the creator sees only their own rows
	got := listVisibleInvoices(t, db, Visible(&rep, ResourceInvoice, ActionRead, roles))
	require.Len(t, got, 1)
	require.Equal(t, repInvoice.ID, got[0].ID)

	// the manager sees the whole reporting chain
	got = listVisibleInvoices(t, db, Visible(&manager, ResourceInvoice, ActionRead, roles))
	require.Len(t, got, 2)

	// a peer sees nothing of the other branch
	got = listVisibleInvoices(t, db, Visible(&peer, ResourceInvoice, ActionRead, roles))
	require.Len(t, got, 1)
	require.Equal(t, peerInvoice.ID, got[0].ID)
}

func TestVisible_NilActorSeesNothing(t *testing.T) {
	db := setupVisibilityDB(t)

	customer := model.Customer{Name: "c", Email: "c@x.io", Mobile: "1"}
	require.NoError(t, db.Create(&customer).Error)
	inv := model.Invoice{CustomerID: customer.ID, Status: model.InvoiceStatusPending}
	require.NoError(t, db.Create(&inv).Error)

	got := listVisibleInvoices(t, db, Visible(nil, ResourceInvoice, ActionRead, nil))
	require.Empty(t, got)
}

func TestVisible_GloballyReadableOnRead(t *testing.T) {
	db := setupVisibilityDB(t)

	repRole := model.Role{Name: "sales rep"}
	require.NoError(t, db.Create(&repRole).Error)
	rep := model.User{Name: "r", Email: "r@x.io", Password: "x", RoleID: &repRole.ID}
	require.NoError(t, db.Create(&rep).Error)
	stranger := uuid.New()

	c1 := model.Customer{Name: "mine", Email: "a@x.io", Mobile: "1"}
	c1.Stamp(rep.ID)
	require.NoError(t, db.Create(&c1).Error)
	c2 := model.Customer{Name: "theirs", Email: "b@x.io", Mobile: "2"}
	c2.CreatedByID = &stranger
	require.NoError(t, db.Create(&c2).Error)

	var roles []model.Role
	require.NoError(t, db.Find(&roles).Error)

	var customers []model.Customer
	require.NoError(t, db.Scopes(Visible(&rep, ResourceCustomer, ActionRead, roles)).Find(&customers).Error)
	require.Len(t, customers, 2, "the customer directory is shared for reading")

	// writes stay ownership-scoped
	customers = nil
	require.NoError(t, db.Scopes(Visible(&rep, ResourceCustomer, ActionUpdate, roles)).Find(&customers).Error)
	require.Len(t, customers, 1)
	require.Equal(t, c1.ID, customers[0].ID)
}

func TestVisible_AdminUnfiltered(t *testing.T) {
	db := setupVisibilityDB(t)

	adminRole := model.Role{Name: "admin"}
	require.NoError(t, db.Create(&adminRole).Error)
	admin := model.User{Name: "a", Email: "a@x.io", Password: "x", RoleID: &adminRole.ID, Role: &adminRole}

	customer := model.Customer{Name: "c", Email: "c@x.io", Mobile: "1"}
	require.NoError(t, db.Create(&customer).Error)
	inv := model.Invoice{CustomerID: customer.ID, Status: model.InvoiceStatusPending}
	stranger := uuid.New()
	inv.CreatedByID = &stranger
	require.NoError(t, db.Create(&inv).Error)

	got := listVisibleInvoices(t, db, Visible(&admin, ResourceInvoice, ActionRead, nil))
	require.Len(t, got, 1)
}
