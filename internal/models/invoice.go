package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice represents a billing record for a customer.
// TotalQuantity and TotalAmount mirror the sums over Transactions; they are
// kept in step by the invoice service, not by the database.
type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Customer      string          `gorm:"size:255;not null" json:"customer"`
	Date          time.Time       `gorm:"type:date;not null" json:"date"`
	TotalQuantity int             `gorm:"not null;default:0" json:"total_quantity"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`

	// Line items; removed together with the invoice.
	Transactions []Transaction `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"transactions"`
}

// TableName keeps the table names of the existing schema.
func (Invoice) TableName() string { return "odo_invoice" }

// Transaction is a single product line on an invoice.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Product   string          `gorm:"size:255;not null" json:"product"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"line_total"`

	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`
}

func (Transaction) TableName() string { return "odo_transaction" }

// Total returns quantity × price.
func (t *Transaction) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(int64(t.Quantity)))
}

// Totals is an aggregate over a set of transactions.
type Totals struct {
	Quantity int
	Amount   decimal.Decimal
}
