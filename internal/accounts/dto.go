package accounts

import (
	"time"

	"github.com/ecomhq/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

// AccountDTO is the transport shape that omits credential hashes.
type AccountDTO struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HostDTO is the transport shape for host operators.
type HostDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func FromModel(a *models.Account) *AccountDTO {
	if a == nil {
		return nil
	}
	return &AccountDTO{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func HostFromModel(h *models.Host) *HostDTO {
	if h == nil {
		return nil
	}
	return &HostDTO{
		ID:        h.ID,
		Username:  h.Username,
		CreatedAt: h.CreatedAt,
	}
}
