package store

import (
	"context"
	"errors"

	ierr "github.com/diewo77/odo-invoices/internal/errors"
	"github.com/diewo77/odo-invoices/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm; it works with the postgres and
// sqlite dialects.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(inv).Error; err != nil {
		return ierr.WithError(err).WithHint("invoice creation failed").Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *GormStore) UpdateInvoice(ctx context.Context, inv *models.Invoice, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(inv).Select(fields).Updates(inv)
	if res.Error != nil {
		return ierr.WithError(res.Error).WithHint("invoice update failed").Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("invoice not found").WithHintf("invoice %d not found", inv.ID).Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *GormStore) DeleteInvoice(ctx context.Context, id uint) error {
	return s.WithTx(ctx, func(st Store) error {
		tx := st.(*GormStore).db
		// the FK cascades as well; sqlite only honours it with foreign_keys on
		if err := tx.Where("invoice_id = ?", id).Delete(&models.Transaction{}).Error; err != nil {
			return ierr.WithError(err).WithHint("transaction removal failed").Mark(ierr.ErrDatabase)
		}
		res := tx.Delete(&models.Invoice{}, id)
		if res.Error != nil {
			return ierr.WithError(res.Error).WithHint("invoice deletion failed").Mark(ierr.ErrDatabase)
		}
		if res.RowsAffected == 0 {
			return ierr.NewError("invoice not found").WithHintf("invoice %d not found", id).Mark(ierr.ErrNotFound)
		}
		return nil
	})
}

func (s *GormStore) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Preload("Transactions", orderByID).First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).WithHintf("invoice %d not found", id).Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).WithHint("getting invoice failed").Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}

func (s *GormStore) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var invs []models.Invoice
	if err := s.db.WithContext(ctx).Preload("Transactions", orderByID).Order("id").Find(&invs).Error; err != nil {
		return nil, ierr.WithError(err).WithHint("listing invoices failed").Mark(ierr.ErrDatabase)
	}
	return invs, nil
}

func (s *GormStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return ierr.WithError(err).WithHint("transaction creation failed").Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *GormStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	err := s.db.WithContext(ctx).Model(t).
		Select("product", "quantity", "price", "line_total").
		Updates(t).Error
	if err != nil {
		return ierr.WithError(err).WithHint("transaction update failed").Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *GormStore) DeleteTransactions(ctx context.Context, invoiceID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("invoice_id = ? AND id IN ?", invoiceID, ids).
		Delete(&models.Transaction{}).Error
	if err != nil {
		return ierr.WithError(err).WithHint("transaction removal failed").Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *GormStore) ListTransactions(ctx context.Context, invoiceID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("id").Find(&txs).Error; err != nil {
		return nil, ierr.WithError(err).WithHint("listing transactions failed").Mark(ierr.ErrDatabase)
	}
	return txs, nil
}

func (s *GormStore) SumByInvoice(ctx context.Context, invoiceID uint) (models.Totals, error) {
	var row struct {
		Quantity int
		Amount   decimal.NullDecimal
	}
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(quantity), 0) AS quantity, SUM(line_total) AS amount").
		Where("invoice_id = ?", invoiceID).
		Scan(&row).Error
	if err != nil {
		return models.Totals{}, ierr.WithError(err).WithHint("summing transactions failed").Mark(ierr.ErrDatabase)
	}
	totals := models.Totals{Quantity: row.Quantity, Amount: decimal.Zero}
	if row.Amount.Valid {
		// sqlite sums decimals as floats
		totals.Amount = row.Amount.Decimal.Round(2)
	}
	return totals, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
