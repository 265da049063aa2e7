package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// testEnv wires the full service stack over an in-memory database and
// seeds a three-level role chain: admin > sales manager > two sibling
// rep roles.
type testEnv struct {
	db *gorm.DB

	userRepo     repository.UserRepository
	roleRepo     repository.RoleRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	invoiceRepo  repository.InvoiceRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager

	auth      AuthService
	users     UserService
	roles     RoleService
	customers CustomerService
	products  ProductService
	invoices  InvoiceService

	adminRole   *model.Role
	managerRole *model.Role
	repRole     *model.Role
	peerRole    *model.Role

	admin   *model.User
	manager *model.User
	rep     *model.User
	peer    *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	// A single connection keeps every session on the same in-memory
	// database and serializes concurrent transactions.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Role{},
		&model.Permission{},
		&model.User{},
		&model.Customer{},
		&model.Product{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.RefreshToken{},
		&model.AuditLog{},
	))

	env := &testEnv{db: db}
	env.userRepo = repository.NewUserRepository(db)
	env.roleRepo = repository.NewRoleRepository(db)
	env.customerRepo = repository.NewCustomerRepository(db)
	env.productRepo = repository.NewProductRepository(db)
	env.invoiceRepo = repository.NewInvoiceRepository(db)
	env.auditRepo = repository.NewAuditRepository(db)
	env.txManager = repository.NewTransactionManager(db)

	env.auth = NewAuthService(env.userRepo, []byte("test-secret"))
	env.users = NewUserService(env.userRepo, env.roleRepo, env.auditRepo, env.txManager)
	env.roles = NewRoleService(env.roleRepo, env.userRepo, env.auditRepo, env.txManager)
	env.customers = NewCustomerService(env.customerRepo, env.roleRepo, env.userRepo)
	env.products = NewProductService(env.productRepo, env.roleRepo, env.userRepo, env.auditRepo, env.txManager, nil)
	env.invoices = NewInvoiceService(env.invoiceRepo, env.productRepo, env.customerRepo, env.roleRepo, env.userRepo, env.auditRepo, env.txManager, nil)

	env.adminRole = env.seedRole(t, "admin", nil)
	env.managerRole = env.seedRole(t, "sales manager", env.adminRole)
	env.repRole = env.seedRole(t, "sales rep", env.managerRole)
	env.peerRole = env.seedRole(t, "support rep", env.managerRole)

	env.admin = env.seedUser(t, "Alice Admin", "alice@example.com", env.adminRole)
	env.manager = env.seedUser(t, "Mark Manager", "mark@example.com", env.managerRole)
	env.rep = env.seedUser(t, "Rita Rep", "rita@example.com", env.repRole)
	env.peer = env.seedUser(t, "Paul Peer", "paul@example.com", env.peerRole)
	return env
}

func (e *testEnv) seedRole(t *testing.T, name string, parent *model.Role) *model.Role {
	t.Helper()
	role := &model.Role{Name: name, Active: true}
	if parent != nil {
		role.ParentRoleID = &parent.ID
	}
	require.NoError(t, e.roleRepo.Create(context.Background(), role))
	return role
}

func (e *testEnv) seedUser(t *testing.T, name, email string, role *model.Role) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		RoleID:   &role.ID,
		Active:   true,
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))

	loaded, err := e.userRepo.FindByIDWithRole(context.Background(), user.ID)
	require.NoError(t, err)
	return loaded
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func (e *testEnv) seedCustomer(t *testing.T, name, email string, creator *model.User) *model.Customer {
	t.Helper()
	customer := &model.Customer{Name: name, Email: email, Mobile: email}
	customer.Stamp(creator.ID)
	require.NoError(t, e.customerRepo.Create(context.Background(), customer))
	return customer
}

func (e *testEnv) seedProduct(t *testing.T, name string, price string, quantity int, creator *model.User) *model.Product {
	t.Helper()
	product := &model.Product{Name: name, Price: mustDecimal(t, price), Quantity: quantity}
	product.Stamp(creator.ID)
	require.NoError(t, e.productRepo.Create(context.Background(), product))
	return product
}
