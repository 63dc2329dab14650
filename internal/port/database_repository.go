package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/rl1809/sales/internal/core/domain"
)

// Repositories return (nil, nil) when the requested row does not exist.

type Database interface {
	// Begin opens a unit of work. Callers must Commit or Rollback it.
	Begin(ctx context.Context) (UnitOfWork, error)
}

type UnitOfWork interface {
	Customers() CustomerRepository
	Branches() BranchRepository
	Products() ProductRepository
	Sales() SaleRepository

	// Commit flushes tracked changes and reports whether any row was affected.
	// Nothing is persisted when it returns false or an error.
	Commit(ctx context.Context) (bool, error)

	// Rollback discards the unit of work. Safe to call after Commit.
	Rollback() error
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByID returns a tracked customer; changes are flushed on Commit
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	// GetByIDReadOnly does not track the customer and may run concurrently
	GetByIDReadOnly(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	List(ctx context.Context, name string) ([]domain.Customer, error)
}

type BranchRepository interface {
	Create(ctx context.Context, branch *domain.Branch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Branch, error)
	GetByIDReadOnly(ctx context.Context, id uuid.UUID) (*domain.Branch, error)
	List(ctx context.Context, name string) ([]domain.Branch, error)
}

type ProductRepository interface {
	// Create inserts the product and assigns its ID
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetByIDs returns the products found; missing ids are simply absent
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	List(ctx context.Context, name string) ([]domain.Product, error)
}

type SaleRepository interface {
	// Create inserts the sale with its items and assigns identities
	Create(ctx context.Context, sale *domain.Sale) error

	// GetByID loads the aggregate for modification within the unit of work
	GetByID(ctx context.Context, id int64) (*domain.Sale, error)

	// GetView returns the denormalized read model
	GetView(ctx context.Context, id int64) (*domain.SaleView, error)

	List(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleView, error)

	// Remove deletes the sale and its items
	Remove(ctx context.Context, sale *domain.Sale) error
}
