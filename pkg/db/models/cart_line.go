package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine holds one (account, product) pair with a positive quantity.
// The unique index keeps at most one line per pair; quantity updates
// merge into the existing row instead of duplicating it.
type CartLine struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_cart_lines_account_product"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_lines_account_product"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
