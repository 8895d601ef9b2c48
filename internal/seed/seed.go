// Package seed loads a small demo dataset so a fresh dev environment has a
// browsable catalog, a host login, and enough purchase history to render the
// sales dashboard. It never touches tables that already hold rows.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecomhq/storefront-backend/pkg/config"
	"github.com/ecomhq/storefront-backend/pkg/db/models"
	"github.com/ecomhq/storefront-backend/pkg/logger"
	"github.com/ecomhq/storefront-backend/pkg/security"
)

const (
	demoHostUsername    = "host"
	demoShopperUsername = "demo"
	demoPassword        = "storefront-demo"
	demoRestorePhrase   = "paddle creek morning lantern"
)

// Run populates demo data when the catalog is empty. Safe to call on every
// boot; a non-empty products table short-circuits.
func Run(ctx context.Context, cfg *config.Config, logg *logger.Logger, gdb *gorm.DB) error {
	var productCount int64
	if err := gdb.WithContext(ctx).Model(&models.Product{}).Count(&productCount).Error; err != nil {
		return fmt.Errorf("counting products: %w", err)
	}
	if productCount > 0 {
		logg.Info(ctx, "seed skipped, catalog already populated")
		return nil
	}

	passwordHash, err := security.HashPassword(demoPassword, cfg.Password)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}
	restoreHash, err := security.HashPassword(demoRestorePhrase, cfg.Password)
	if err != nil {
		return fmt.Errorf("hashing demo restore phrase: %w", err)
	}

	products := []models.Product{
		{ID: uuid.New(), Name: "Walnut Desk", Description: "Solid walnut writing desk with cable tray", Price: decimal.NewFromInt(420)},
		{ID: uuid.New(), Name: "Desk Lamp", Description: "Adjustable brass desk lamp, warm LED", Price: decimal.RequireFromString("64.50")},
		{ID: uuid.New(), Name: "Monitor Stand", Description: "Bamboo riser with storage shelf", Price: decimal.RequireFromString("38.00")},
		{ID: uuid.New(), Name: "Ergonomic Chair", Description: "Mesh back task chair", Price: decimal.NewFromInt(310), IsPopular: true},
		{ID: uuid.New(), Name: "Felt Desk Mat", Description: "Grey felt mat, 80x30cm", Price: decimal.RequireFromString("24.90"), IsPopular: true},
	}

	shopper := models.Account{
		ID:                uuid.New(),
		Username:          demoShopperUsername,
		Email:             "demo@storefront.local",
		PasswordHash:      passwordHash,
		RestorePhraseHash: restoreHash,
	}
	host := models.Host{
		ID:           uuid.New(),
		Username:     demoHostUsername,
		PasswordHash: passwordHash,
	}

	// Purchase history spread over a few days gives the sales report
	// something to aggregate.
	base := time.Now().UTC().AddDate(0, 0, -7).Truncate(24 * time.Hour)
	purchases := []models.PurchaseEntry{
		{ID: uuid.New(), AccountID: shopper.ID, ProductID: products[0].ID, Quantity: 2, PurchasedAt: base},
		{ID: uuid.New(), AccountID: shopper.ID, ProductID: products[1].ID, Quantity: 1, PurchasedAt: base.AddDate(0, 0, 1)},
		{ID: uuid.New(), AccountID: shopper.ID, ProductID: products[3].ID, Quantity: 3, PurchasedAt: base.AddDate(0, 0, 2)},
	}

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&products).Error; err != nil {
			return fmt.Errorf("seeding products: %w", err)
		}
		if err := tx.Create(&shopper).Error; err != nil {
			return fmt.Errorf("seeding shopper: %w", err)
		}
		if err := tx.Create(&host).Error; err != nil {
			return fmt.Errorf("seeding host: %w", err)
		}
		if err := tx.Create(&purchases).Error; err != nil {
			return fmt.Errorf("seeding purchases: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"products":  len(products),
		"purchases": len(purchases),
	}), "seeded demo data")
	return nil
}
