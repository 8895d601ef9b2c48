package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecomhq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog reads plus the host-side product management surface.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error)
	ListPopular(ctx context.Context) ([]models.Product, error)
	FeaturedProduct(ctx context.Context) (*models.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ProductInput carries the host-editable product fields.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	IsPopular   bool
}

type service struct {
	repo ProductRepository
	tx   txRunner
}

// NewService builds a catalog service backed by the provided stack.
func NewService(repo ProductRepository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) ListPopular(ctx context.Context) ([]models.Product, error) {
	return s.ListProducts(ctx, ListFilter{PopularOnly: true})
}

// FeaturedProduct returns one popular pick for the home surface.
func (s *service) FeaturedProduct(ctx context.Context) (*models.Product, error) {
	product, err := s.repo.FirstPopular(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no popular products available")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load featured product")
	}
	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		IsPopular:   input.IsPopular,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.IsPopular = input.IsPopular

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return updated, nil
}

// DeleteProduct removes a product that no cart currently references. Carts
// keep live references to the catalog, so deleting underneath them would make
// existing cart lines unpriceable.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	// The check and the delete share one transaction so a line added in
	// between cannot leave a dangling reference.
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		refs, err := repo.CountCartReferences(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cart references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by open carts")
		}

		affected, err := repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil
	})
}

func validateProductInput(input ProductInput) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}
	return nil
}
