package accounts

import (
	"context"
	"time"

	"github.com/ecomhq/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes account persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an accounts repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new account and returns the persisted model.
func (r *Repository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// FindByUsername retrieves the account matching the provided username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByID loads an account by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateLastLogin refreshes the account's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash overwrites the stored password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

// HostRepository exposes host persistence operations.
type HostRepository struct {
	db *gorm.DB
}

// NewHostRepository constructs a hosts repo bound to the provided GORM DB.
func NewHostRepository(db *gorm.DB) *HostRepository {
	return &HostRepository{db: db}
}

// Create inserts a new host.
func (r *HostRepository) Create(ctx context.Context, host *models.Host) (*models.Host, error) {
	if host.ID == uuid.Nil {
		host.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(host).Error; err != nil {
		return nil, err
	}
	return host, nil
}

// FindByUsername retrieves the host matching the provided username.
func (r *HostRepository) FindByUsername(ctx context.Context, username string) (*models.Host, error) {
	var host models.Host
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&host).Error; err != nil {
		return nil, err
	}
	return &host, nil
}

// FindByID loads a host by its UUID.
func (r *HostRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Host, error) {
	var host models.Host
	if err := r.db.WithContext(ctx).First(&host, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &host, nil
}

// UpdatePasswordHash overwrites the stored password hash.
func (r *HostRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Host{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}
