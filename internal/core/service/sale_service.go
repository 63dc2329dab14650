package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/sales/internal/core/domain"
	"github.com/rl1809/sales/internal/port"
)

type SaleItemInput struct {
	ProductID int64
	Quantity  int
}

type CreateSaleCommand struct {
	CustomerID uuid.UUID
	BranchID   uuid.UUID
	Items      []SaleItemInput
}

// UpdateSaleCommand replaces the parties and the full item list of a sale.
type UpdateSaleCommand struct {
	SaleID     int64
	CustomerID uuid.UUID
	BranchID   uuid.UUID
	Items      []SaleItemInput
}

// SaleService runs the sale use cases. Each call works inside one unit of
// work and publishes its event only after a successful commit.
type SaleService struct {
	db        port.Database
	cache     port.CacheRepository
	publisher port.EventPublisher
	validator *Validator
	logger    *zap.Logger
}

// NewSaleService wires the service. cache may be nil to disable read-model
// caching.
func NewSaleService(db port.Database, cache port.CacheRepository, publisher port.EventPublisher, validator *Validator, logger *zap.Logger) *SaleService {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if validator == nil {
		validator = NewValidator()
	}

	return &SaleService{
		db:        db,
		cache:     cache,
		publisher: publisher,
		validator: validator,
		logger:    logger,
	}
}

// CreateSale validates the command, resolves customer, branch and products,
// and persists a new pending sale. All validation and lookup failures are
// reported together in a *ValidationError.
func (s *SaleService) CreateSale(ctx context.Context, cmd CreateSaleCommand) (int64, error) {
	failures := s.validator.ValidateCreateSale(cmd)

	uow, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	refs, err := resolveReferences(ctx, uow, cmd.CustomerID, cmd.BranchID, requestedProducts(cmd.Items))
	if err != nil {
		return 0, err
	}
	if cmd.CustomerID != uuid.Nil && refs.customer == nil {
		failures = append(failures, customerNotFound())
	}
	if cmd.BranchID != uuid.Nil && refs.branch == nil {
		failures = append(failures, branchNotFound())
	}

	sale := domain.NewSale(cmd.CustomerID, cmd.BranchID)
	for _, item := range cmd.Items {
		if item.ProductID <= 0 {
			continue
		}
		product, ok := refs.products[item.ProductID]
		if !ok {
			failures = append(failures, productNotFound(item.ProductID))
			continue
		}
		if !validQuantity(item.Quantity) {
			continue
		}
		if err := sale.AddItem(product.ID, item.Quantity, product.Price); err != nil {
			return 0, fmt.Errorf("add product %d: %w", product.ID, err)
		}
	}

	if len(failures) > 0 {
		return 0, newValidationError(failures...)
	}

	if err := uow.Sales().Create(ctx, sale); err != nil {
		return 0, fmt.Errorf("create sale: %w", err)
	}

	ok, err := uow.Commit(ctx)
	if err != nil {
		return 0, fmt.Errorf("commit sale: %w", err)
	}
	if !ok {
		s.logger.Error("sale commit affected no rows", zap.String("customer_id", cmd.CustomerID.String()))
		return 0, ErrSaleNotCreated
	}

	s.logger.Info("sale created",
		zap.Int64("sale_id", sale.ID()),
		zap.Int("items", len(sale.Items())),
		zap.String("total_amount", sale.TotalAmount().StringFixed(2)),
	)
	s.publisher.Publish(ctx, domain.NewSaleCreated(sale))

	return sale.ID(), nil
}

// UpdateSale replaces customer, branch and items of a pending sale.
func (s *SaleService) UpdateSale(ctx context.Context, routeSaleID int64, cmd UpdateSaleCommand) (bool, error) {
	if failures := s.validator.ValidateUpdateSale(routeSaleID, cmd); len(failures) > 0 {
		return false, newValidationError(failures...)
	}

	uow, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	sale, err := loadSale(ctx, uow, cmd.SaleID)
	if err != nil {
		return false, err
	}
	if sale.Status() != domain.SaleStatusPending {
		return false, ErrSaleNotEditable
	}

	if err := replaceParties(ctx, uow, sale, cmd.CustomerID, cmd.BranchID); err != nil {
		return false, err
	}
	if err := replaceItems(ctx, uow, sale, cmd.Items); err != nil {
		return false, err
	}

	ok, err := uow.Commit(ctx)
	if err != nil {
		return false, fmt.Errorf("commit sale %d: %w", sale.ID(), err)
	}
	if !ok {
		s.logger.Error("sale update affected no rows", zap.Int64("sale_id", sale.ID()))
		return false, ErrSaleNotUpdated
	}

	s.logger.Info("sale updated", zap.Int64("sale_id", sale.ID()), zap.String("total_amount", sale.TotalAmount().StringFixed(2)))
	s.afterCommit(ctx, sale.ID(), domain.NewSaleModified(sale))

	return true, nil
}

// CancelSale moves a pending sale to Cancelled. It returns false without an
// error when the commit changed nothing.
func (s *SaleService) CancelSale(ctx context.Context, saleID int64) (bool, error) {
	return s.changeStatus(ctx, saleID, domain.SaleStatusCancelled)
}

// CompleteSale moves a pending sale to Completed.
func (s *SaleService) CompleteSale(ctx context.Context, saleID int64) (bool, error) {
	return s.changeStatus(ctx, saleID, domain.SaleStatusCompleted)
}

// DeleteSale removes a sale together with its items.
func (s *SaleService) DeleteSale(ctx context.Context, saleID int64) (bool, error) {
	if failures := s.validator.ValidateSaleID(saleID); len(failures) > 0 {
		return false, newValidationError(failures...)
	}

	uow, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	sale, err := loadSale(ctx, uow, saleID)
	if err != nil {
		return false, err
	}
	event := domain.NewSaleDeleted(sale)

	if err := uow.Sales().Remove(ctx, sale); err != nil {
		return false, fmt.Errorf("remove sale %d: %w", saleID, err)
	}

	ok, err := uow.Commit(ctx)
	if err != nil {
		return false, fmt.Errorf("commit sale %d: %w", saleID, err)
	}
	if !ok {
		s.logger.Warn("sale delete affected no rows", zap.Int64("sale_id", saleID))
		return false, nil
	}

	s.logger.Info("sale deleted", zap.Int64("sale_id", saleID))
	s.afterCommit(ctx, saleID, event)

	return true, nil
}

func (s *SaleService) changeStatus(ctx context.Context, saleID int64, target domain.SaleStatus) (bool, error) {
	uow, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	sale, err := loadSale(ctx, uow, saleID)
	if err != nil {
		return false, err
	}
	if !sale.Status().CanTransitionTo(target) {
		return false, statusConflict(sale.Status())
	}

	var event domain.Event
	switch target {
	case domain.SaleStatusCancelled:
		sale.Cancel()
		event = domain.NewSaleCancelled(sale)
	case domain.SaleStatusCompleted:
		sale.Complete()
		event = domain.NewSaleCompleted(sale)
	default:
		return false, fmt.Errorf("unsupported target status %q", target)
	}

	ok, err := uow.Commit(ctx)
	if err != nil {
		return false, fmt.Errorf("commit sale %d: %w", saleID, err)
	}
	if !ok {
		s.logger.Warn("sale status change affected no rows", zap.Int64("sale_id", saleID), zap.String("status", string(target)))
		return false, nil
	}

	s.logger.Info("sale status changed", zap.Int64("sale_id", saleID), zap.String("status", string(target)))
	s.afterCommit(ctx, saleID, event)

	return true, nil
}

// afterCommit drops the cached read model and publishes the event.
func (s *SaleService) afterCommit(ctx context.Context, saleID int64, event domain.Event) {
	if s.cache != nil {
		if err := s.cache.InvalidateSale(ctx, saleID); err != nil {
			s.logger.Warn("failed to invalidate sale cache", zap.Int64("sale_id", saleID), zap.Error(err))
		}
	}
	s.publisher.Publish(ctx, event)
}

func statusConflict(current domain.SaleStatus) error {
	if current == domain.SaleStatusCompleted {
		return ErrSaleAlreadyCompleted
	}
	return ErrSaleAlreadyCancelled
}

func loadSale(ctx context.Context, uow port.UnitOfWork, saleID int64) (*domain.Sale, error) {
	sale, err := uow.Sales().GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get sale %d: %w", saleID, err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	return sale, nil
}

type references struct {
	customer *domain.Customer
	branch   *domain.Branch
	products map[int64]domain.Product
}

// resolveReferences looks up customer, branch and products concurrently.
// Nil ids and an empty product list are skipped.
func resolveReferences(ctx context.Context, uow port.UnitOfWork, customerID, branchID uuid.UUID, productIDs []int64) (references, error) {
	var refs references
	g, gctx := errgroup.WithContext(ctx)

	if customerID != uuid.Nil {
		g.Go(func() error {
			customer, err := uow.Customers().GetByIDReadOnly(gctx, customerID)
			if err != nil {
				return fmt.Errorf("get customer %s: %w", customerID, err)
			}
			refs.customer = customer
			return nil
		})
	}

	if branchID != uuid.Nil {
		g.Go(func() error {
			branch, err := uow.Branches().GetByIDReadOnly(gctx, branchID)
			if err != nil {
				return fmt.Errorf("get branch %s: %w", branchID, err)
			}
			refs.branch = branch
			return nil
		})
	}

	if len(productIDs) > 0 {
		g.Go(func() error {
			products, err := uow.Products().GetByIDs(gctx, productIDs)
			if err != nil {
				return fmt.Errorf("get products: %w", err)
			}
			refs.products = make(map[int64]domain.Product, len(products))
			for _, p := range products {
				refs.products[p.ID] = p
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return references{}, err
	}
	return refs, nil
}

func replaceParties(ctx context.Context, uow port.UnitOfWork, sale *domain.Sale, customerID, branchID uuid.UUID) error {
	var wantCustomer, wantBranch uuid.UUID
	if customerID != sale.CustomerID() {
		wantCustomer = customerID
	}
	if branchID != sale.BranchID() {
		wantBranch = branchID
	}
	if wantCustomer == uuid.Nil && wantBranch == uuid.Nil {
		return nil
	}

	refs, err := resolveReferences(ctx, uow, wantCustomer, wantBranch, nil)
	if err != nil {
		return err
	}

	var failures []Failure
	if wantCustomer != uuid.Nil && refs.customer == nil {
		failures = append(failures, customerNotFound())
	}
	if wantBranch != uuid.Nil && refs.branch == nil {
		failures = append(failures, branchNotFound())
	}
	if len(failures) > 0 {
		return newValidationError(failures...)
	}

	if refs.customer != nil {
		sale.UpdateCustomer(refs.customer.ID)
	}
	if refs.branch != nil {
		sale.UpdateBranch(refs.branch.ID)
	}
	return nil
}

// replaceItems swaps the whole item list after resolving every product in a
// single batch. Products that do not exist abort the update.
func replaceItems(ctx context.Context, uow port.UnitOfWork, sale *domain.Sale, items []SaleItemInput) error {
	if len(items) == 0 {
		return nil
	}

	refs, err := resolveReferences(ctx, uow, uuid.Nil, uuid.Nil, requestedProducts(items))
	if err != nil {
		return err
	}

	var failures []Failure
	for _, item := range items {
		if _, ok := refs.products[item.ProductID]; !ok {
			failures = append(failures, productNotFound(item.ProductID))
		}
	}
	if len(failures) > 0 {
		return newValidationError(failures...)
	}

	sale.ClearItems()
	for _, item := range items {
		product := refs.products[item.ProductID]
		if err := sale.AddItem(product.ID, item.Quantity, product.Price); err != nil {
			return fmt.Errorf("add product %d: %w", product.ID, err)
		}
	}
	return nil
}

// requestedProducts returns the distinct positive product ids in request order.
func requestedProducts(items []SaleItemInput) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if item.ProductID <= 0 {
			continue
		}
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.Event) {}
