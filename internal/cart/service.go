package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecomhq/storefront-backend/internal/catalog"
	"github.com/ecomhq/storefront-backend/internal/ledger"
	"github.com/ecomhq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/ecomhq/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the cart-to-purchase engine.
type Service interface {
	AddLine(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*models.CartLine, error)
	SetQuantity(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*models.CartLine, error)
	RemoveLine(ctx context.Context, accountID, productID uuid.UUID) error
	View(ctx context.Context, accountID uuid.UUID) (*View, error)
	Checkout(ctx context.Context, accountID uuid.UUID, at time.Time) (*CheckoutResult, error)
}

// ViewLine is one cart line priced at the live catalog price.
type ViewLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// View is the rendered cart.
type View struct {
	Lines []ViewLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// CheckoutResult reports the outcome of a checkout attempt. Empty is true when
// there was nothing to convert; that is not an error, just a distinct outcome.
type CheckoutResult struct {
	Empty       bool            `json:"empty"`
	PurchasedAt time.Time       `json:"purchased_at"`
	Lines       []ViewLine      `json:"lines"`
	Total       decimal.Decimal `json:"total"`
}

type service struct {
	repo      LineRepository
	tx        txRunner
	products  catalog.ProductRepository
	purchases ledger.Repository
	checkout  *metrics.CheckoutMetrics
}

// NewService builds the cart engine.
func NewService(
	repo LineRepository,
	tx txRunner,
	products catalog.ProductRepository,
	purchases ledger.Repository,
	checkoutMetrics *metrics.CheckoutMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart line repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if purchases == nil {
		return nil, fmt.Errorf("purchase ledger repository required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		products:  products,
		purchases: purchases,
		checkout:  checkoutMetrics,
	}, nil
}

// AddLine merges quantity into the account's line for the product, creating
// the line when absent. Two concurrent adds for the same product both land.
func (s *service) AddLine(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*models.CartLine, error) {
	if err := validateIdentity(accountID, productID); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}

	line := &models.CartLine{
		AccountID: accountID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.repo.UpsertAdd(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart line")
	}

	merged, err := s.repo.FindLine(ctx, accountID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart line")
	}
	return merged, nil
}

// SetQuantity sets the absolute quantity of the line, creating it when
// absent. Zero removes the line and returns a nil line.
func (s *service) SetQuantity(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*models.CartLine, error) {
	if err := validateIdentity(accountID, productID); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	// Zero is the removal path. Already-absent counts as success.
	if quantity == 0 {
		if err := s.repo.DeleteLine(ctx, accountID, productID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
		}
		return nil, nil
	}

	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}

	line := &models.CartLine{
		AccountID: accountID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.repo.UpsertSet(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart line")
	}

	stored, err := s.repo.FindLine(ctx, accountID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart line")
	}
	return stored, nil
}

// RemoveLine deletes the line. Removing an absent line succeeds.
func (s *service) RemoveLine(ctx context.Context, accountID, productID uuid.UUID) error {
	if err := validateIdentity(accountID, productID); err != nil {
		return err
	}
	if err := s.repo.DeleteLine(ctx, accountID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return nil
}

// View renders the cart at live catalog prices.
func (s *service) View(ctx context.Context, accountID uuid.UUID) (*View, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	lines, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}

	viewLines, total, err := s.priceLines(ctx, s.products, lines)
	if err != nil {
		return nil, err
	}
	return &View{Lines: viewLines, Total: total}, nil
}

// Checkout converts the cart into ledger entries atomically. The whole
// conversion runs in one transaction: price every line, append the purchases,
// clear the cart. Any failure rolls the lot back and leaves the cart intact.
func (s *service) Checkout(ctx context.Context, accountID uuid.UUID, at time.Time) (*CheckoutResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	started := time.Now()
	var result *CheckoutResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		purchases := s.purchases.WithTx(tx)

		lines, err := repo.ListByAccountForUpdate(ctx, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart lines")
		}
		if len(lines) == 0 {
			result = &CheckoutResult{Empty: true, Total: decimal.Zero}
			return nil
		}

		viewLines, total, err := s.priceLines(ctx, s.products.WithTx(tx), lines)
		if err != nil {
			return err
		}

		purchasedAt := at
		entries := make([]models.PurchaseEntry, 0, len(lines))
		for _, line := range lines {
			entries = append(entries, models.PurchaseEntry{
				AccountID:   accountID,
				ProductID:   line.ProductID,
				Quantity:    line.Quantity,
				PurchasedAt: purchasedAt,
			})
		}

		if err := purchases.AppendBatch(ctx, entries); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append purchases")
		}
		if err := repo.ClearAccount(ctx, accountID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		result = &CheckoutResult{
			PurchasedAt: purchasedAt,
			Lines:       viewLines,
			Total:       total,
		}
		return nil
	})
	if err != nil {
		s.checkout.ObserveFailure(failureReason(err), time.Since(started))
		return nil, err
	}

	if result.Empty {
		return result, nil
	}
	s.checkout.ObserveSuccess(len(result.Lines), time.Since(started))
	return result, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) priceLines(ctx context.Context, loader catalog.ProductRepository, lines []models.CartLine) ([]ViewLine, decimal.Decimal, error) {
	total := decimal.Zero
	if len(lines) == 0 {
		return nil, total, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := loader.FindByIDs(ctx, ids)
	if err != nil {
		return nil, total, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	viewLines := make([]ViewLine, 0, len(lines))
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "cart references a product that no longer exists")
		}
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		viewLines = append(viewLines, ViewLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
			LineTotal:   lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return viewLines, total, nil
}

func validateIdentity(accountID, productID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return nil
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return "internal"
}
