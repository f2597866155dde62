package handlers

import (
	"encoding/json"
	"time"

	"github.com/diewo77/odo-invoices/internal/models"
	"github.com/diewo77/odo-invoices/internal/services"
	"github.com/diewo77/odo-invoices/validation"
	"github.com/samber/lo"
)

type transactionResponse struct {
	ID        uint   `json:"id"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	LineTotal string `json:"line_total"`
}

type invoiceResponse struct {
	ID            uint                  `json:"id"`
	Customer      string                `json:"customer"`
	TotalAmount   string                `json:"total_amount"`
	TotalQuantity int                   `json:"total_quantity"`
	Date          string                `json:"date"`
	Transactions  []transactionResponse `json:"transactions"`
}

type createdResponse struct {
	ID uint `json:"id"`
}

func newInvoiceResponse(inv models.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		Customer:      inv.Customer,
		TotalAmount:   inv.TotalAmount.StringFixed(2),
		TotalQuantity: inv.TotalQuantity,
		Date:          inv.Date.Format(time.DateOnly),
		Transactions: lo.Map(inv.Transactions, func(t models.Transaction, _ int) transactionResponse {
			return transactionResponse{
				ID:        t.ID,
				Product:   t.Product,
				Quantity:  t.Quantity,
				Price:     t.Price.StringFixed(2),
				LineTotal: t.LineTotal.StringFixed(2),
			}
		}),
	}
}

// parseCreateInvoice checks a create body field by field and stops at the
// first violation: customer, transactions, then product, quantity and price
// of each entry in order.
func parseCreateInvoice(body validation.Object) (services.CreateInvoiceInput, *validation.Violation) {
	var in services.CreateInvoiceInput

	customer, v := validation.RequiredString(body, "customer", "Customer")
	if v != nil {
		return in, v
	}
	items, v := validation.RequiredList(body, "transactions", "Transactions")
	if v != nil {
		return in, v
	}

	in.Customer = customer
	in.Transactions = make([]services.TransactionInput, 0, len(items))
	for _, raw := range items {
		var entry validation.Object
		if err := json.Unmarshal(raw, &entry); err != nil || entry == nil {
			// not an object: nothing in it can be the product
			entry = validation.Object{}
		}
		product, v := validation.RequiredString(entry, "product", "Product")
		if v != nil {
			return in, v
		}
		quantity, v := validation.PositiveInt(entry, "quantity", "Quantity")
		if v != nil {
			return in, v
		}
		price, v := validation.PositiveNumber(entry, "price", "Price")
		if v != nil {
			return in, v
		}
		in.Transactions = append(in.Transactions, services.TransactionInput{
			Product:  product,
			Quantity: quantity,
			Price:    price,
		})
	}
	return in, nil
}

// parseUpdateInvoice reads the optional customer and the transaction set of
// an update body. Quantity and price may be numbers or numeric strings.
func parseUpdateInvoice(body validation.Object) (services.UpdateInvoiceInput, error) {
	var in services.UpdateInvoiceInput

	if body.Has("customer") {
		customer, v := validation.RequiredString(body, "customer", "Customer")
		if v != nil {
			return in, v
		}
		in.Customer = &customer
	}

	items, err := validation.OptionalList(body, "transactions")
	if err != nil {
		return in, err
	}
	for _, raw := range items {
		var entry validation.Object
		if err := json.Unmarshal(raw, &entry); err != nil || entry == nil {
			return in, errTransactionNotObject
		}
		var p services.TransactionPatch
		var matchable bool
		if p.ID, matchable, err = validation.OptionalID(entry, "id"); err != nil {
			return in, err
		}
		p.Unmatched = !matchable
		if p.Product, err = validation.OptionalString(entry, "product"); err != nil {
			return in, err
		}
		if p.Quantity, err = validation.OptionalDecimal(entry, "quantity"); err != nil {
			return in, err
		}
		if p.Price, err = validation.OptionalDecimal(entry, "price"); err != nil {
			return in, err
		}
		in.Transactions = append(in.Transactions, p)
	}
	return in, nil
}
