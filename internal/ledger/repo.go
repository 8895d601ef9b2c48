package ledger

import (
	"context"
	"time"

	"github.com/ecomhq/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository manages persistence for the purchase ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AppendBatch(ctx context.Context, entries []models.PurchaseEntry) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.PurchaseEntry, error)
	ListHistoryByAccount(ctx context.Context, accountID uuid.UUID) ([]HistoryRow, error)
}

// HistoryRow is a purchase joined with the current catalog product.
type HistoryRow struct {
	ProductID   uuid.UUID       `gorm:"column:product_id"`
	ProductName string          `gorm:"column:product_name"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price"`
	Quantity    int             `gorm:"column:quantity"`
	PurchasedAt time.Time       `gorm:"column:purchased_at"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) AppendBatch(ctx context.Context, entries []models.PurchaseEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == uuid.Nil {
			entries[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.PurchaseEntry, error) {
	var entries []models.PurchaseEntry
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("purchased_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListHistoryByAccount(ctx context.Context, accountID uuid.UUID) ([]HistoryRow, error) {
	var rows []HistoryRow
	err := r.db.WithContext(ctx).
		Table("purchases").
		Select("purchases.product_id, COALESCE(products.name, '') AS product_name, COALESCE(products.price, 0) AS unit_price, purchases.quantity, purchases.purchased_at").
		Joins("LEFT JOIN products ON products.id = purchases.product_id").
		Where("purchases.account_id = ?", accountID).
		Order("purchases.purchased_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
