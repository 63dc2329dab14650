package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/sales/internal/core/domain"
	"github.com/rl1809/sales/internal/port"
)

// CatalogService registers and lists the customers, branches and products
// that sales refer to.
type CatalogService struct {
	db        port.Database
	publisher port.EventPublisher
	validator *Validator
	logger    *zap.Logger
}

func NewCatalogService(db port.Database, publisher port.EventPublisher, validator *Validator, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if validator == nil {
		validator = NewValidator()
	}

	return &CatalogService{
		db:        db,
		publisher: publisher,
		validator: validator,
		logger:    logger,
	}
}

func (s *CatalogService) CreateCustomer(ctx context.Context, name string) (uuid.UUID, error) {
	if failures := s.validator.ValidateName(name); len(failures) > 0 {
		return uuid.Nil, newValidationError(failures...)
	}

	customer := domain.NewCustomer(name)
	err := s.create(ctx, ErrCustomerNotCreated, func(uow port.UnitOfWork) error {
		return uow.Customers().Create(ctx, customer)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("customer created", zap.String("customer_id", customer.ID.String()), zap.String("name", customer.Name))
	s.publisher.Publish(ctx, domain.CustomerCreated{CustomerID: customer.ID, Name: customer.Name, OccurredAt: time.Now().UTC()})
	return customer.ID, nil
}

func (s *CatalogService) ListCustomers(ctx context.Context, name string) ([]domain.Customer, error) {
	uow, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	return uow.Customers().List(ctx, name)
}

// RenameCustomer changes the name of an existing customer. Sales refer to
// customers by id, so their views pick up the new name.
func (s *CatalogService) RenameCustomer(ctx context.Context, id uuid.UUID, name string) error {
	if failures := s.validator.ValidateName(name); len(failures) > 0 {
		return newValidationError(failures...)
	}

	uow, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	customer, err := uow.Customers().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load customer %s: %w", id, err)
	}
	if customer == nil {
		return ErrCustomerNotFound
	}
	if customer.Name == domain.NormalizeName(name) {
		return nil
	}

	customer.Rename(name)
	if err := commit(ctx, uow, ErrCustomerNotUpdated); err != nil {
		return err
	}
	s.logger.Info("customer renamed", zap.String("customer_id", id.String()), zap.String("name", customer.Name))
	return nil
}

func (s *CatalogService) CreateBranch(ctx context.Context, name string) (uuid.UUID, error) {
	if failures := s.validator.ValidateName(name); len(failures) > 0 {
		return uuid.Nil, newValidationError(failures...)
	}

	branch := domain.NewBranch(name)
	err := s.create(ctx, ErrBranchNotCreated, func(uow port.UnitOfWork) error {
		return uow.Branches().Create(ctx, branch)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("branch created", zap.String("branch_id", branch.ID.String()), zap.String("name", branch.Name))
	s.publisher.Publish(ctx, domain.BranchCreated{BranchID: branch.ID, Name: branch.Name, OccurredAt: time.Now().UTC()})
	return branch.ID, nil
}

func (s *CatalogService) ListBranches(ctx context.Context, name string) ([]domain.Branch, error) {
	uow, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	return uow.Branches().List(ctx, name)
}

func (s *CatalogService) RenameBranch(ctx context.Context, id uuid.UUID, name string) error {
	if failures := s.validator.ValidateName(name); len(failures) > 0 {
		return newValidationError(failures...)
	}

	uow, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	branch, err := uow.Branches().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load branch %s: %w", id, err)
	}
	if branch == nil {
		return ErrBranchNotFound
	}
	if branch.Name == domain.NormalizeName(name) {
		return nil
	}

	branch.Rename(name)
	if err := commit(ctx, uow, ErrBranchNotUpdated); err != nil {
		return err
	}
	s.logger.Info("branch renamed", zap.String("branch_id", id.String()), zap.String("name", branch.Name))
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, name string, price decimal.Decimal) (int64, error) {
	if failures := s.validator.ValidateProduct(name, price); len(failures) > 0 {
		return 0, newValidationError(failures...)
	}

	product, err := domain.NewProduct(name, price)
	if err != nil {
		return 0, err
	}
	err = s.create(ctx, ErrProductNotCreated, func(uow port.UnitOfWork) error {
		return uow.Products().Create(ctx, product)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	s.publisher.Publish(ctx, domain.ProductCreated{ProductID: product.ID, Name: product.Name, Price: product.Price, OccurredAt: time.Now().UTC()})
	return product.ID, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, name string) ([]domain.Product, error) {
	uow, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	return uow.Products().List(ctx, name)
}

// create runs write in its own unit of work and maps an empty commit to notCreated.
func (s *CatalogService) create(ctx context.Context, notCreated error, write func(port.UnitOfWork) error) error {
	uow, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	if err := write(uow); err != nil {
		return fmt.Errorf("%w: %w", notCreated, err)
	}
	return commit(ctx, uow, notCreated)
}

// commit maps a failed or empty commit to notApplied.
func commit(ctx context.Context, uow port.UnitOfWork, notApplied error) error {
	ok, err := uow.Commit(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", notApplied, err)
	}
	if !ok {
		return notApplied
	}
	return nil
}
