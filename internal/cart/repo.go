package cart

import (
	"context"
	"time"

	"github.com/ecomhq/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LineRepository manages persistent cart lines.
type LineRepository interface {
	WithTx(tx *gorm.DB) LineRepository
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error)
	ListByAccountForUpdate(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error)
	FindLine(ctx context.Context, accountID, productID uuid.UUID) (*models.CartLine, error)
	UpsertAdd(ctx context.Context, line *models.CartLine) error
	UpsertSet(ctx context.Context, line *models.CartLine) error
	DeleteLine(ctx context.Context, accountID, productID uuid.UUID) error
	ClearAccount(ctx context.Context, accountID uuid.UUID) error
}

// Repository is the GORM-backed LineRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) LineRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByAccount returns the account's cart lines in insertion order.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error) {
	var rows []models.CartLine
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByAccountForUpdate locks the account's cart lines for the duration of the
// surrounding transaction. Row locks are a Postgres feature; SQLite serializes
// writers on the database handle, so the lock clause is skipped there.
func (r *Repository) ListByAccountForUpdate(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error) {
	tx := r.db.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.CartLine
	if err := tx.
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindLine loads a single cart line.
func (r *Repository) FindLine(ctx context.Context, accountID, productID uuid.UUID) (*models.CartLine, error) {
	var row models.CartLine
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertAdd inserts the line or, when the (account, product) pair already
// exists, adds the new quantity onto the stored one. The additive update runs
// inside the database so concurrent adds for the same pair cannot lose writes.
func (r *Repository) UpsertAdd(ctx context.Context, line *models.CartLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_lines.quantity + excluded.quantity"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(line).Error
}

// UpsertSet inserts the line or, when the (account, product) pair already
// exists, replaces the stored quantity with the new one.
func (r *Repository) UpsertSet(ctx context.Context, line *models.CartLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("excluded.quantity"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(line).Error
}

// DeleteLine removes the line if present. Deleting an absent line is a no-op.
func (r *Repository) DeleteLine(ctx context.Context, accountID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Delete(&models.CartLine{}).Error
}

// ClearAccount removes every line belonging to the account.
func (r *Repository) ClearAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.CartLine{}).Error
}
