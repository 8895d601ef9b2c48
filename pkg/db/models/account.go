package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a shopper identity capable of holding a cart.
type Account struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username          string    `gorm:"type:text;not null;uniqueIndex"`
	Email             string    `gorm:"column:email;not null"`
	PasswordHash      string    `gorm:"column:password_hash;not null"`
	RestorePhraseHash string    `gorm:"column:restore_phrase_hash;not null"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
