package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ecomhq/storefront-backend/internal/catalog"
	"github.com/ecomhq/storefront-backend/internal/ledger"
	"github.com/ecomhq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single pooled connection keeps every session on the same in-memory
	// database and serializes concurrent writers.
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
	cartLines := `
CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (account_id, product_id)
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
	require.NoError(t, db.Exec(cartLines).Error)
	require.NoError(t, db.Exec(purchases).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newEngine(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		catalog.NewRepository(db),
		ledger.NewRepository(db),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func newProduct(t *testing.T, db *gorm.DB, name string, price string) *models.Product {
	t.Helper()

	p := &models.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestAddLineMergesQuantities(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	account := uuid.New()
	product := newProduct(t, db, "Walnut Desk", "249.99")

	line, err := svc.AddLine(ctx, account, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)

	line, err = svc.AddLine(ctx, account, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	var count int64
	require.NoError(t, db.Model(&models.CartLine{}).Where("account_id = ?", account).Count(&count).Error)
	assert.Equal(t, int64(1), count, "repeat adds must merge into one line")
}

func TestAddLineConcurrentAddsBothLand(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	account := uuid.New()
	product := newProduct(t, db, "Desk Lamp", "39.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddLine(ctx, account, product.ID, 1)
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	line, err := NewRepository(db).FindLine(ctx, account, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
}

func TestAddLineRejectsNonPositiveQuantity(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	product := newProduct(t, db, "Bookshelf", "120.00")

	for _, qty := range []int{0, -1} {
		_, err := svc.AddLine(ctx, uuid.New(), product.ID, qty)
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestAddLineUnknownProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)

	_, err := svc.AddLine(context.Background(), uuid.New(), uuid.New(), 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSetQuantityOverwrites(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	account := uuid.New()
	product := newProduct(t, db, "Office Chair", "189.50")

	_, err := svc.AddLine(ctx, account, product.ID, 4)
	require.NoError(t, err)

	line, err := svc.SetQuantity(ctx, account, product.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	account := uuid.New()
	product := newProduct(t, db, "Cable Tray", "19.00")

	_, err := svc.AddLine(ctx, account, product.ID, 2)
	require.NoError(t, err)

	line, err := svc.SetQuantity(ctx, account, product.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, line)

	view, err := svc.View(ctx, account)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	// Zeroing an already-absent line is still a success.
	line, err = svc.SetQuantity(ctx, account, product.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, line)
}

func TestSetQuantityRejectsNegative(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)

	product := newProduct(t, db, "Drawer Unit", "120.00")

	_, err := svc.SetQuantity(context.Background(), uuid.New(), product.ID, -1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSetQuantityCreatesAbsentLine(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	account := uuid.New()
	product := newProduct(t, db, "Monitor Arm", "79.00")

	line, err := svc.SetQuantity(ctx, account, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)

	view, err := svc.View(ctx, account)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
}

func TestSetQuantityUnknownProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)

	_, err := svc.SetQuantity(context.Background(), uuid.New(), uuid.New(), 2)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRemoveLineIsIdempotent(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	account := uuid.New()
	product := newProduct(t, db, "Standing Mat", "45.00")

	_, err := svc.AddLine(ctx, account, product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveLine(ctx, account, product.ID))
	require.NoError(t, svc.RemoveLine(ctx, account, product.ID), "removing an absent line must succeed")

	view, err := svc.View(ctx, account)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())
}

func TestViewPricesAtLiveCatalogPrice(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	account := uuid.New()
	desk := newProduct(t, db, "Walnut Desk", "200.00")
	lamp := newProduct(t, db, "Desk Lamp", "40.00")

	_, err := svc.AddLine(ctx, account, desk.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, account, lamp.ID, 1)
	require.NoError(t, err)

	view, err := svc.View(ctx, account)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("440.00")), "got %s", view.Total)

	// price change is reflected on the next render
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", desk.ID).Update("price", "150.00").Error)

	view, err = svc.View(ctx, account)
	require.NoError(t, err)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("340.00")), "got %s", view.Total)
}

func TestCheckoutConvertsCartAndClearsIt(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)
	ctx := context.Background()

	account := uuid.New()
	desk := newProduct(t, db, "Walnut Desk", "200.00")
	lamp := newProduct(t, db, "Desk Lamp", "40.00")

	_, err := svc.AddLine(ctx, account, desk.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, account, lamp.ID, 3)
	require.NoError(t, err)

	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	result, err := svc.Checkout(ctx, account, at)
	require.NoError(t, err)
	require.False(t, result.Empty)
	assert.Len(t, result.Lines, 2)
	assert.True(t, result.Total.Equal(decimal.RequireFromString("520.00")), "got %s", result.Total)
	assert.True(t, result.PurchasedAt.Equal(at))

	var entries []models.PurchaseEntry
	require.NoError(t, db.Where("account_id = ?", account).Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, result.PurchasedAt.Unix(), entry.PurchasedAt.Unix(), "all entries share one purchase timestamp")
	}

	var remaining int64
	require.NoError(t, db.Model(&models.CartLine{}).Where("account_id = ?", account).Count(&remaining).Error)
	assert.Zero(t, remaining, "checkout must clear the cart")
}

func TestCheckoutEmptyCartIsDistinctOutcome(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newEngine(t, db)

	result, err := svc.Checkout(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	require.True(t, result.Empty)
	assert.Empty(t, result.Lines)
	assert.True(t, result.Total.IsZero())

	var count int64
	require.NoError(t, db.Model(&models.PurchaseEntry{}).Count(&count).Error)
	assert.Zero(t, count, "empty checkout must not write ledger entries")
}

func TestCheckoutRollsBackOnFailure(t *testing.T) {
	db := setupCartTestDB(t)
	ctx := context.Background()

	account := uuid.New()
	desk := newProduct(t, db, "Walnut Desk", "200.00")

	svc := newEngine(t, db)
	_, err := svc.AddLine(ctx, account, desk.ID, 1)
	require.NoError(t, err)

	// Break the ledger table so the append inside the transaction fails.
	require.NoError(t, db.Exec(`DROP TABLE purchases`).Error)

	_, err = svc.Checkout(ctx, account, time.Now().UTC())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())

	// The cart must be untouched after the rollback.
	var remaining int64
	require.NoError(t, db.Model(&models.CartLine{}).Where("account_id = ?", account).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}
