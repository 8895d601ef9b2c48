package ledger

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

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  is_popular INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	purchases := `
CREATE TABLE IF NOT EXISTS purchases (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  purchased_at DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(purchases).Error)
	return db
}

func TestHistoryPricesAtCurrentCatalogPrice(t *testing.T) {
	db := setupLedgerTestDB(t)
	ctx := context.Background()

	account := uuid.New()
	desk := &models.Product{ID: uuid.New(), Name: "Walnut Desk", Price: decimal.RequireFromString("200.00")}
	require.NoError(t, db.Create(desk).Error)

	repo := NewRepository(db)
	older := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendBatch(ctx, []models.PurchaseEntry{
		{AccountID: account, ProductID: desk.ID, Quantity: 1, PurchasedAt: older},
		{AccountID: account, ProductID: desk.ID, Quantity: 2, PurchasedAt: newer},
	}))

	svc, err := NewService(repo)
	require.NoError(t, err)

	items, err := svc.History(ctx, account)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// newest first
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].LineTotal.Equal(decimal.RequireFromString("400.00")))
	assert.Equal(t, "2026-08-01 09:00:00", items[0].PurchasedAt)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestHistoryKeepsEntriesForDeletedProducts(t *testing.T) {
	db := setupLedgerTestDB(t)
	ctx := context.Background()

	account := uuid.New()
	lamp := &models.Product{ID: uuid.New(), Name: "Desk Lamp", Price: decimal.RequireFromString("40.00")}
	require.NoError(t, db.Create(lamp).Error)

	repo := NewRepository(db)
	require.NoError(t, repo.AppendBatch(ctx, []models.PurchaseEntry{
		{AccountID: account, ProductID: lamp.ID, Quantity: 1, PurchasedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
	}))

	require.NoError(t, db.Delete(&models.Product{}, "id = ?", lamp.ID).Error)

	svc, err := NewService(repo)
	require.NoError(t, err)

	items, err := svc.History(ctx, account)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// The row survives the deletion, labeled by the bare product id.
	assert.Equal(t, lamp.ID.String(), items[0].ProductName)
	assert.Equal(t, 1, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.IsZero())
}

func TestHistoryEmpty(t *testing.T) {
	db := setupLedgerTestDB(t)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	items, err := svc.History(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, items)
}
