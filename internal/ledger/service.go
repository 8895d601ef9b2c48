package ledger

import (
	"context"
	"fmt"

	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service exposes read access to the purchase ledger. Writes happen only
// through checkout, inside its transaction.
type Service interface {
	History(ctx context.Context, accountID uuid.UUID) ([]HistoryItem, error)
}

// HistoryItem is one purchase priced at the current catalog price.
type HistoryItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	PurchasedAt string          `json:"purchased_at"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) History(ctx context.Context, accountID uuid.UUID) ([]HistoryItem, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	rows, err := s.repo.ListHistoryByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase history")
	}

	items := make([]HistoryItem, 0, len(rows))
	for _, row := range rows {
		qty := decimal.NewFromInt(int64(row.Quantity))
		name := row.ProductName
		if name == "" {
			// Product was removed from the catalog after purchase.
			name = row.ProductID.String()
		}
		items = append(items, HistoryItem{
			ProductID:   row.ProductID,
			ProductName: name,
			UnitPrice:   row.UnitPrice,
			Quantity:    row.Quantity,
			LineTotal:   row.UnitPrice.Mul(qty),
			PurchasedAt: row.PurchasedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return items, nil
}
