package services

import (
	"context"
	"time"

	ierr "github.com/diewo77/odo-invoices/internal/errors"
	"github.com/diewo77/odo-invoices/internal/logger"
	"github.com/diewo77/odo-invoices/internal/models"
	"github.com/diewo77/odo-invoices/internal/store"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ErrNoInvoices is returned by List when nothing has been stored yet.
var ErrNoInvoices = ierr.NewError("no invoice data found").Mark(ierr.ErrNotFound)

// TransactionInput is one validated line of a create request.
type TransactionInput struct {
	Product  string
	Quantity int
	Price    decimal.Decimal
}

// CreateInvoiceInput is a validated create request.
type CreateInvoiceInput struct {
	Customer     string
	Transactions []TransactionInput
}

// TransactionPatch is one line of an update request. ID 0 asks for a new
// transaction; nil fields keep the stored value of an existing one.
// Unmatched marks an id that no stored transaction can carry (negative,
// fractional, out of range); such a line is skipped like an unknown id.
type TransactionPatch struct {
	ID        uint
	Unmatched bool
	Product   *string
	Quantity  *decimal.Decimal
	Price     *decimal.Decimal
}

// creatable reports whether a patch without id carries enough to become a
// new transaction: a product and non-zero quantity and price.
func (p TransactionPatch) creatable() bool {
	return p.Product != nil && *p.Product != "" &&
		p.Quantity != nil && !p.Quantity.IsZero() &&
		p.Price != nil && !p.Price.IsZero()
}

// UpdateInvoiceInput is a parsed update request. A nil Customer leaves the
// customer untouched; Transactions is the complete desired set of lines.
type UpdateInvoiceInput struct {
	Customer     *string
	Transactions []TransactionPatch
}

type InvoiceService struct {
	store store.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewInvoiceService(st store.Store, log *logger.Logger) *InvoiceService {
	if log == nil {
		log = logger.NewNop()
	}
	return &InvoiceService{store: st, log: log, now: time.Now}
}

// LineTotal returns quantity × price with the price at cent precision.
func LineTotal(quantity int, price decimal.Decimal) decimal.Decimal {
	line := models.Transaction{Quantity: quantity, Price: price.Round(2)}
	return line.Total()
}

// ComputeTotals sums quantities and line totals of the given transactions.
func ComputeTotals(txs []models.Transaction) models.Totals {
	totals := models.Totals{Amount: decimal.Zero}
	for _, t := range txs {
		totals.Quantity += t.Quantity
		totals.Amount = totals.Amount.Add(t.LineTotal)
	}
	return totals
}

// List returns every invoice with its transactions, or ErrNoInvoices.
func (s *InvoiceService) List(ctx context.Context) ([]models.Invoice, error) {
	invs, err := s.store.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	if len(invs) == 0 {
		return nil, ErrNoInvoices
	}
	return invs, nil
}

func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// Create stores the invoice and its transactions atomically, with totals
// computed from the lines.
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (*models.Invoice, error) {
	lines := lo.Map(in.Transactions, func(t TransactionInput, _ int) models.Transaction {
		return models.Transaction{
			Product:   t.Product,
			Quantity:  t.Quantity,
			Price:     t.Price.Round(2),
			LineTotal: LineTotal(t.Quantity, t.Price),
		}
	})
	totals := ComputeTotals(lines)
	inv := &models.Invoice{
		Customer:      in.Customer,
		Date:          models.DateOnly(s.now()),
		TotalQuantity: totals.Quantity,
		TotalAmount:   totals.Amount,
	}

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		for i := range lines {
			lines[i].InvoiceID = inv.ID
			if err := tx.CreateTransaction(ctx, &lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warnw("invoice creation rolled back", "customer", in.Customer, "error", err)
		return nil, err
	}
	inv.Transactions = lines
	s.log.Debugw("invoice created", "invoice_id", inv.ID, "transactions", len(lines))
	return inv, nil
}

// Update applies in to invoice id atomically: matching lines are rewritten,
// lines without id are added, unknown ids are skipped and stored lines left
// out of the request are deleted. Totals are then recomputed from storage.
func (s *InvoiceService) Update(ctx context.Context, id uint, in UpdateInvoiceInput) error {
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if in.Customer != nil {
			inv.Customer = *in.Customer
			if err := tx.UpdateInvoice(ctx, inv, "customer"); err != nil {
				return err
			}
		}

		existing := lo.SliceToMap(inv.Transactions, func(t models.Transaction) (uint, models.Transaction) {
			return t.ID, t
		})
		pending := lo.SliceToMap(inv.Transactions, func(t models.Transaction) (uint, struct{}) {
			return t.ID, struct{}{}
		})

		for _, p := range in.Transactions {
			if p.Unmatched {
				continue
			}
			if p.ID != 0 {
				cur, ok := existing[p.ID]
				if !ok {
					continue
				}
				if _, ok := pending[p.ID]; !ok {
					return ierr.NewError("transaction listed twice").
						WithHintf("transaction %d appears more than once", p.ID).
						Mark(ierr.ErrValidation)
				}
				if err := applyPatch(&cur, p); err != nil {
					return err
				}
				if err := tx.UpdateTransaction(ctx, &cur); err != nil {
					return err
				}
				delete(pending, p.ID)
				continue
			}

			if !p.creatable() {
				continue
			}
			qty, err := wholeQuantity(*p.Quantity)
			if err != nil {
				return err
			}
			t := &models.Transaction{
				Product:   *p.Product,
				Quantity:  qty,
				Price:     p.Price.Round(2),
				LineTotal: LineTotal(qty, *p.Price),
				InvoiceID: inv.ID,
			}
			if err := tx.CreateTransaction(ctx, t); err != nil {
				return err
			}
		}

		if err := tx.DeleteTransactions(ctx, inv.ID, lo.Keys(pending)); err != nil {
			return err
		}

		totals, err := tx.SumByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		inv.TotalQuantity = totals.Quantity
		inv.TotalAmount = totals.Amount
		inv.Date = models.DateOnly(s.now())
		return tx.UpdateInvoice(ctx, inv, "total_quantity", "total_amount", "date")
	})
	if err != nil && !ierr.IsNotFound(err) {
		s.log.Warnw("invoice update rolled back", "invoice_id", id, "error", err)
	}
	return err
}

func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	s.log.Debugw("invoice deleted", "invoice_id", id)
	return nil
}

func applyPatch(t *models.Transaction, p TransactionPatch) error {
	if p.Product != nil {
		t.Product = *p.Product
	}
	if p.Quantity != nil {
		qty, err := wholeQuantity(*p.Quantity)
		if err != nil {
			return err
		}
		t.Quantity = qty
	}
	price := t.Price
	if p.Price != nil {
		price = *p.Price
	}
	t.Price = price.Round(2)
	t.LineTotal = LineTotal(t.Quantity, price)
	return nil
}

func wholeQuantity(q decimal.Decimal) (int, error) {
	if !q.IsInteger() {
		return 0, ierr.NewError("quantity must be a whole number").
			WithHintf("quantity %s is not a whole number", q.String()).
			Mark(ierr.ErrValidation)
	}
	return int(q.IntPart()), nil
}
