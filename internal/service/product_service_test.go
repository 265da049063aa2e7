package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestProductCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.products.Create(ctx, env.rep, ProductRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "quantity")

	price := mustDecimal(t, "-1.00")
	_, err = env.products.Create(ctx, env.rep, ProductRequest{
		Name:     "Widget",
		Price:    &price,
		Quantity: intPtr(-5),
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["price"], "Must be a positive number.")
	assert.Contains(t, verr.Fields["quantity"], "Must be a positive number.")
}

func TestProductCreate_NameUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedProduct(t, "Widget", "10.00", 5, env.rep)

	price := mustDecimal(t, "12.00")
	_, err := env.products.Create(ctx, env.rep, ProductRequest{
		Name:     "Widget",
		Price:    &price,
		Quantity: intPtr(1),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["name"], "This name already exists.")
}

func TestProductDelete_BlockedWhileInvoiced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 5, env.rep)

	_, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	err = env.products.Delete(ctx, env.rep, product.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "product")

	// still present
	_, err = env.productRepo.FindByID(ctx, product.ID)
	assert.NoError(t, err)
}

func TestProductDelete_FreeProductRemovable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product := env.seedProduct(t, "Widget", "10.00", 5, env.rep)
	require.NoError(t, env.products.Delete(ctx, env.rep, product.ID))

	_, err := env.productRepo.FindByID(ctx, product.ID)
	assert.Error(t, err)
}

func TestProductUpdate_GatedByCreatorChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product := env.seedProduct(t, "Widget", "10.00", 5, env.rep)

	price := mustDecimal(t, "11.00")
	req := ProductRequest{Name: "Widget", Price: &price, Quantity: intPtr(7)}

	_, err := env.products.Update(ctx, env.peer, product.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := env.products.Update(ctx, env.manager, product.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
	assert.True(t, price.Equal(updated.Price))
}
