package reports

import (
	"context"
	"testing"
	"time"

	"github.com/ecomhq/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReportsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT,
  password_hash TEXT NOT NULL DEFAULT '',
  restore_phrase_hash TEXT NOT NULL DEFAULT '',
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  is_popular INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS purchases (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  purchased_at DATETIME NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type reportSeed struct {
	mara uuid.UUID
	finn uuid.UUID
	desk uuid.UUID
	lamp uuid.UUID
}

func seedSales(t *testing.T, db *gorm.DB) reportSeed {
	t.Helper()

	seed := reportSeed{
		mara: uuid.New(),
		finn: uuid.New(),
		desk: uuid.New(),
		lamp: uuid.New(),
	}

	require.NoError(t, db.Create(&models.Account{ID: seed.mara, Username: "mara", PasswordHash: "x", RestorePhraseHash: "x"}).Error)
	require.NoError(t, db.Create(&models.Account{ID: seed.finn, Username: "finn", PasswordHash: "x", RestorePhraseHash: "x"}).Error)
	require.NoError(t, db.Create(&models.Product{ID: seed.desk, Name: "Walnut Desk", Price: decimal.RequireFromString("200.00")}).Error)
	require.NoError(t, db.Create(&models.Product{ID: seed.lamp, Name: "Desk Lamp", Price: decimal.RequireFromString("40.00")}).Error)

	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 15, 30, 0, 0, time.UTC)

	entries := []models.PurchaseEntry{
		{ID: uuid.New(), AccountID: seed.mara, ProductID: seed.desk, Quantity: 1, PurchasedAt: day1},
		{ID: uuid.New(), AccountID: seed.mara, ProductID: seed.lamp, Quantity: 2, PurchasedAt: day1},
		{ID: uuid.New(), AccountID: seed.finn, ProductID: seed.desk, Quantity: 2, PurchasedAt: day2},
	}
	require.NoError(t, db.Create(&entries).Error)
	return seed
}

func newReportsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestSalesReportAggregates(t *testing.T) {
	db := setupReportsTestDB(t)
	seedSales(t, db)
	svc := newReportsService(t, db)

	report, err := svc.SalesReport(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TransactionCount)
	// 200 + 80 + 400
	assert.True(t, report.TotalSales.Equal(decimal.RequireFromString("680.00")), "got %s", report.TotalSales)
	assert.True(t, report.AverageSalePerTx.Equal(decimal.RequireFromString("226.67")), "got %s", report.AverageSalePerTx)

	require.Len(t, report.SalesByProduct, 2)
	assert.Equal(t, "Desk Lamp", report.SalesByProduct[0].Product, "ascending by total")
	assert.Equal(t, "Walnut Desk", report.SalesByProduct[1].Product)
	assert.True(t, report.SalesByProduct[1].Total.Equal(decimal.RequireFromString("600.00")))

	require.Len(t, report.SalesByDay, 2)
	assert.Equal(t, "2026-08-01", report.SalesByDay[0].Date)
	assert.True(t, report.SalesByDay[0].Total.Equal(decimal.RequireFromString("280.00")))
	assert.Equal(t, "2026-08-02", report.SalesByDay[1].Date)
}

func TestSalesReportFilters(t *testing.T) {
	db := setupReportsTestDB(t)
	seedSales(t, db)
	svc := newReportsService(t, db)
	ctx := context.Background()

	byCustomer, err := svc.SalesReport(ctx, Filter{Customers: []string{"finn"}})
	require.NoError(t, err)
	assert.Equal(t, 1, byCustomer.TransactionCount)
	assert.True(t, byCustomer.TotalSales.Equal(decimal.RequireFromString("400.00")))

	byProduct, err := svc.SalesReport(ctx, Filter{Products: []string{"Desk Lamp"}})
	require.NoError(t, err)
	assert.Equal(t, 1, byProduct.TransactionCount)
	assert.True(t, byProduct.TotalSales.Equal(decimal.RequireFromString("80.00")))

	empty, err := svc.SalesReport(ctx, Filter{Products: []string{"Nonexistent"}})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TransactionCount)
	assert.True(t, empty.TotalSales.IsZero())
	assert.Empty(t, empty.SalesByProduct)
}

func TestFilterOptions(t *testing.T) {
	db := setupReportsTestDB(t)
	seedSales(t, db)
	svc := newReportsService(t, db)

	options, err := svc.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk Lamp", "Walnut Desk"}, options.Products)
	assert.Equal(t, []string{"finn", "mara"}, options.Customers)
}
