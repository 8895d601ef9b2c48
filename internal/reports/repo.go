package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesRow is one ledger entry joined with its product and buyer.
type SalesRow struct {
	ProductID   uuid.UUID       `gorm:"column:product_id"`
	ProductName string          `gorm:"column:product_name"`
	Customer    string          `gorm:"column:customer"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price"`
	Quantity    int             `gorm:"column:quantity"`
	PurchasedAt time.Time       `gorm:"column:purchased_at"`
}

// Filter narrows the sales rows by product and customer names.
type Filter struct {
	Products  []string
	Customers []string
}

// Repository reads denormalized sales rows for host reporting.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a reports repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SalesRows returns every purchase priced at the current catalog price,
// optionally restricted to the named products and customers.
func (r *Repository) SalesRows(ctx context.Context, filter Filter) ([]SalesRow, error) {
	q := r.db.WithContext(ctx).
		Table("purchases").
		Select("purchases.product_id, COALESCE(products.name, '') AS product_name, accounts.username AS customer, COALESCE(products.price, 0) AS unit_price, purchases.quantity, purchases.purchased_at").
		Joins("LEFT JOIN products ON products.id = purchases.product_id").
		Joins("JOIN accounts ON accounts.id = purchases.account_id").
		Order("purchases.purchased_at ASC")

	if len(filter.Products) > 0 {
		q = q.Where("products.name IN ?", filter.Products)
	}
	if len(filter.Customers) > 0 {
		q = q.Where("accounts.username IN ?", filter.Customers)
	}

	var rows []SalesRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ProductNames returns the distinct product names present in the ledger.
func (r *Repository) ProductNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("purchases").
		Joins("JOIN products ON products.id = purchases.product_id").
		Distinct("products.name").
		Order("products.name ASC").
		Pluck("products.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// CustomerNames returns the distinct buyer usernames present in the ledger.
func (r *Repository) CustomerNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("purchases").
		Joins("JOIN accounts ON accounts.id = purchases.account_id").
		Distinct("accounts.username").
		Order("accounts.username ASC").
		Pluck("accounts.username", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
