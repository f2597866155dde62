package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	ierr "github.com/diewo77/odo-invoices/internal/errors"
	"github.com/diewo77/odo-invoices/internal/models"
	"github.com/diewo77/odo-invoices/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedInvoice(t *testing.T, s *GormStore, customer string, lines ...models.Transaction) *models.Invoice {
	t.Helper()
	ctx := context.Background()
	inv := &models.Invoice{Customer: customer, Date: models.DateOnly(time.Now())}
	require.NoError(t, s.CreateInvoice(ctx, inv))
	for i := range lines {
		lines[i].InvoiceID = inv.ID
		lines[i].LineTotal = lines[i].Total()
		require.NoError(t, s.CreateTransaction(ctx, &lines[i]))
	}
	inv.Transactions = lines
	return inv
}

func line(product string, qty int, price string) models.Transaction {
	return models.Transaction{Product: product, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func TestGetInvoiceWithTransactions(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	inv := seedInvoice(t, s, "abc", line("a", 2, "10.00"), line("b", 1, "10.50"))

	got, err := s.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Customer)
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, "a", got.Transactions[0].Product)
	assert.Equal(t, "20.00", got.Transactions[0].LineTotal.StringFixed(2))
	assert.Equal(t, "10.50", got.Transactions[1].Price.StringFixed(2))
}

func TestGetInvoiceNotFound(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	_, err := s.GetInvoice(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestListInvoices(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	ctx := context.Background()

	invs, err := s.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, invs)

	seedInvoice(t, s, "first", line("a", 1, "1.00"))
	seedInvoice(t, s, "second")

	invs, err = s.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Equal(t, "first", invs[0].Customer)
	assert.Len(t, invs[0].Transactions, 1)
	assert.Empty(t, invs[1].Transactions)
}

func TestUpdateInvoiceSelectedFields(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	ctx := context.Background()
	inv := seedInvoice(t, s, "before")

	inv.Customer = "after"
	inv.TotalQuantity = 9
	require.NoError(t, s.UpdateInvoice(ctx, inv, "customer"))

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Customer)
	assert.Equal(t, 0, got.TotalQuantity)

	missing := &models.Invoice{ID: 999, Customer: "x"}
	err = s.UpdateInvoice(ctx, missing, "customer")
	assert.True(t, ierr.IsNotFound(err))
}

func TestDeleteInvoiceCascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	inv := seedInvoice(t, s, "abc", line("a", 1, "1.00"), line("b", 2, "2.00"))
	other := seedInvoice(t, s, "keep", line("c", 1, "3.00"))

	require.NoError(t, s.DeleteInvoice(ctx, inv.ID))

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("invoice_id = ?", inv.ID).Count(&count).Error)
	assert.Zero(t, count)
	txs, err := s.ListTransactions(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	err = s.DeleteInvoice(ctx, inv.ID)
	assert.True(t, ierr.IsNotFound(err))
}

func TestTransactionsLifecycle(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	ctx := context.Background()
	inv := seedInvoice(t, s, "abc", line("a", 1, "1.00"), line("b", 2, "2.00"), line("c", 3, "3.00"))

	first := inv.Transactions[0]
	first.Product = "renamed"
	first.Quantity = 4
	first.LineTotal = first.Total()
	require.NoError(t, s.UpdateTransaction(ctx, &first))

	require.NoError(t, s.DeleteTransactions(ctx, inv.ID, []uint{inv.Transactions[1].ID}))
	require.NoError(t, s.DeleteTransactions(ctx, inv.ID, nil))

	txs, err := s.ListTransactions(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "renamed", txs[0].Product)
	assert.Equal(t, "4.00", txs[0].LineTotal.StringFixed(2))
	assert.Equal(t, "c", txs[1].Product)
}

func TestDeleteTransactionsScopedToInvoice(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	ctx := context.Background()
	a := seedInvoice(t, s, "a", line("a", 1, "1.00"))
	b := seedInvoice(t, s, "b", line("b", 1, "1.00"))

	require.NoError(t, s.DeleteTransactions(ctx, a.ID, []uint{b.Transactions[0].ID}))
	txs, err := s.ListTransactions(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestSumByInvoice(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	ctx := context.Background()
	inv := seedInvoice(t, s, "abc", line("a", 3, "15.00"), line("b", 1, "10.00"), line("c", 3, "0.10"))
	empty := seedInvoice(t, s, "empty")

	totals, err := s.SumByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, totals.Quantity)
	assert.Equal(t, "55.30", totals.Amount.StringFixed(2))

	totals, err = s.SumByInvoice(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, totals.Quantity)
	assert.True(t, totals.Amount.IsZero())
}

func TestWithTxRollsBack(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Store) error {
		inv := &models.Invoice{Customer: "ghost", Date: models.DateOnly(time.Now())}
		if err := tx.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.EqualError(t, err, "boom")

	invs, err := s.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestForeignKeyEnforced(t *testing.T) {
	s := NewGormStore(testutil.NewTestDB(t))
	orphan := line("x", 1, "1.00")
	orphan.InvoiceID = 12345
	orphan.LineTotal = orphan.Total()
	err := s.CreateTransaction(context.Background(), &orphan)
	require.Error(t, err)
	assert.True(t, ierr.IsDatabase(err))
}
