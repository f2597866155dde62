// Package store is the persistence port of the invoice service.
package store

import (
	"context"

	"github.com/diewo77/odo-invoices/internal/models"
)

// Store persists invoices and their transactions. Lookups of a missing
// invoice return an error matching errors.ErrNotFound.
type Store interface {
	// WithTx runs fn inside one database transaction. A non-nil error from fn
	// rolls back every write made through the Store handed to fn.
	WithTx(ctx context.Context, fn func(Store) error) error

	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	// UpdateInvoice writes only the named columns.
	UpdateInvoice(ctx context.Context, inv *models.Invoice, fields ...string) error
	// DeleteInvoice removes the invoice and all of its transactions.
	DeleteInvoice(ctx context.Context, id uint) error
	// GetInvoice loads one invoice with its transactions.
	GetInvoice(ctx context.Context, id uint) (*models.Invoice, error)
	// ListInvoices loads every invoice with its transactions.
	ListInvoices(ctx context.Context) ([]models.Invoice, error)

	CreateTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransactions(ctx context.Context, invoiceID uint, ids []uint) error
	ListTransactions(ctx context.Context, invoiceID uint) ([]models.Transaction, error)
	// SumByInvoice aggregates quantity and line_total over the invoice's
	// transactions; both are zero when it has none.
	SumByInvoice(ctx context.Context, invoiceID uint) (models.Totals, error)
}
