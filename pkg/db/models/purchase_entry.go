package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseEntry is an immutable record of a committed purchase. Rows are
// appended by checkout and never updated or deleted through the engine.
type PurchaseEntry struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID   uuid.UUID `gorm:"column:account_id;type:uuid;not null"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	PurchasedAt time.Time `gorm:"column:purchased_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the ledger on the purchases table instead of the
// default pluralization of the struct name.
func (PurchaseEntry) TableName() string { return "purchases" }
