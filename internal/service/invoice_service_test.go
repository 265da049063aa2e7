package service

import (
	"context"
	"sync"
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceCreate_ComputesAmountsAndTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	widget := env.seedProduct(t, "Widget", "10.00", 10, env.rep)
	gadget := env.seedProduct(t, "Gadget", "5.50", 10, env.rep)

	inv, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items: []InvoiceItemRequest{
			{ProductID: widget.ID.String(), Quantity: 2},
			{ProductID: gadget.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.True(t, mustDecimal(t, "25.50").Equal(inv.TotalAmount), "got %s", inv.TotalAmount)
	require.Len(t, inv.Items, 2)

	byProduct := map[string]InvoiceItemResponse{}
	for _, item := range inv.Items {
		byProduct[item.ProductID.String()] = item
	}
	assert.True(t, mustDecimal(t, "20.00").Equal(byProduct[widget.ID.String()].Amount))
	assert.True(t, mustDecimal(t, "5.50").Equal(byProduct[gadget.ID.String()].Amount))

	// stock moved
	reloaded, err := env.productRepo.FindByID(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Quantity)
	reloaded, err = env.productRepo.FindByID(ctx, gadget.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, reloaded.Quantity)
}

func TestInvoiceCreate_InsufficientStockRollsEverythingBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	plenty := env.seedProduct(t, "Plenty", "10.00", 100, env.rep)
	scarce := env.seedProduct(t, "Scarce", "10.00", 1, env.rep)

	_, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items: []InvoiceItemRequest{
			{ProductID: plenty.ID.String(), Quantity: 5},
			{ProductID: scarce.ID.String(), Quantity: 3},
		},
	})

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Scarce", stockErr.ProductName)
	assert.Equal(t, 1, stockErr.Available)

	// no invoice row and no stock movement survived, even for the line
	// that had enough stock
	var count int64
	require.NoError(t, env.db.Model(&model.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, env.db.Model(&model.InvoiceItem{}).Count(&count).Error)
	assert.Zero(t, count)

	reloaded, err := env.productRepo.FindByID(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, reloaded.Quantity)
}

func TestInvoiceCreate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "customer_id")
	assert.Contains(t, verr.Fields, "items")

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 10, env.rep)

	_, err = env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 0}},
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items.0")
}

func TestInvoiceCreate_AmountsSurviveRepricing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 10, env.rep)

	inv, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	// reprice the product after the sale
	stored, err := env.productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	stored.Price = mustDecimal(t, "99.99")
	require.NoError(t, env.productRepo.Update(ctx, stored))

	reloaded, err := env.invoices.Get(ctx, env.rep, inv.ID)
	require.NoError(t, err)
	assert.True(t, mustDecimal(t, "20.00").Equal(reloaded.TotalAmount))
	assert.True(t, mustDecimal(t, "20.00").Equal(reloaded.Items[0].Amount))
}

func TestInvoiceCreate_ConcurrentOrdersNeverOversell(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 5, env.rep)

	req := CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 3}},
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.invoices.Create(ctx, env.rep, req)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var failures, successes int
	for err := range errCh {
		if err == nil {
			successes++
			continue
		}
		failures++
		var stockErr *StockError
		require.ErrorAs(t, err, &stockErr)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)

	reloaded, err := env.productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Quantity)
}

func TestInvoiceStatus_ManagerSettlesPendingInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 10, env.rep)
	inv, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	updated, err := env.invoices.UpdateStatus(ctx, env.manager, inv.ID, UpdateInvoiceRequest{Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, updated.Status)
}

func TestInvoiceStatus_NonManagerDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 10, env.rep)
	inv, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	// the creator themselves cannot settle without a manager role
	_, err = env.invoices.UpdateStatus(ctx, env.rep, inv.ID, UpdateInvoiceRequest{Status: "paid"})
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := env.invoices.Get(ctx, env.rep, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, stored.Status)
}

func TestInvoiceStatus_SettledInvoiceIsFinal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 10, env.rep)
	inv, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.invoices.UpdateStatus(ctx, env.admin, inv.ID, UpdateInvoiceRequest{Status: "refused"})
	require.NoError(t, err)

	_, err = env.invoices.UpdateStatus(ctx, env.admin, inv.ID, UpdateInvoiceRequest{Status: "paid"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
}

func TestInvoiceStatus_RejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 10, env.rep)
	inv, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	for _, status := range []string{"pending", "cancelled", ""} {
		_, err = env.invoices.UpdateStatus(ctx, env.admin, inv.ID, UpdateInvoiceRequest{Status: status})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, status)
	}
}

func TestInvoiceGet_VisibilityFollowsHierarchy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 10, env.rep)
	inv, err := env.invoices.Create(ctx, env.rep, CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.invoices.Get(ctx, env.manager, inv.ID)
	assert.NoError(t, err, "the creator's manager may read it")

	_, err = env.invoices.Get(ctx, env.peer, inv.ID)
	assert.ErrorIs(t, err, ErrForbidden, "a sibling branch may not")
}

func TestInvoiceList_ScopedByCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t, "Acme", "acme@example.com", env.rep)
	product := env.seedProduct(t, "Widget", "10.00", 100, env.rep)

	for _, actor := range []*model.User{env.rep, env.peer} {
		_, err := env.invoices.Create(ctx, actor, CreateInvoiceRequest{
			CustomerID: customer.ID.String(),
			Items:      []InvoiceItemRequest{{ProductID: product.ID.String(), Quantity: 1}},
		})
		require.NoError(t, err)
	}

	repList, total, err := env.invoices.List(ctx, env.rep, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, repList, 1)

	_, total, err = env.invoices.List(ctx, env.manager, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = env.invoices.List(ctx, env.admin, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
