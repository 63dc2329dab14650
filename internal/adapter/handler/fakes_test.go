package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales/internal/core/domain"
	"github.com/rl1809/sales/internal/core/service"
)

// fakeSales returns canned results and records the last call.
type fakeSales struct {
	createID int64
	ok       bool
	view     *domain.SaleView
	views    []domain.SaleView
	err      error

	lastCreate  service.CreateSaleCommand
	lastUpdate  service.UpdateSaleCommand
	lastRouteID int64
	lastSaleID  int64
	lastFilter  domain.SaleFilter
}

func (f *fakeSales) CreateSale(_ context.Context, cmd service.CreateSaleCommand) (int64, error) {
	f.lastCreate = cmd
	return f.createID, f.err
}

func (f *fakeSales) UpdateSale(_ context.Context, routeSaleID int64, cmd service.UpdateSaleCommand) (bool, error) {
	f.lastRouteID = routeSaleID
	f.lastUpdate = cmd
	return f.ok, f.err
}

func (f *fakeSales) CancelSale(_ context.Context, saleID int64) (bool, error) {
	f.lastSaleID = saleID
	return f.ok, f.err
}

func (f *fakeSales) CompleteSale(_ context.Context, saleID int64) (bool, error) {
	f.lastSaleID = saleID
	return f.ok, f.err
}

func (f *fakeSales) DeleteSale(_ context.Context, saleID int64) (bool, error) {
	f.lastSaleID = saleID
	return f.ok, f.err
}

func (f *fakeSales) GetSale(_ context.Context, saleID int64) (*domain.SaleView, error) {
	f.lastSaleID = saleID
	return f.view, f.err
}

func (f *fakeSales) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.SaleView, error) {
	f.lastFilter = filter
	return f.views, f.err
}

type fakeCatalog struct {
	id       uuid.UUID
	products []domain.Product
	err      error
	lastName string
	lastID   uuid.UUID
}

func (f *fakeCatalog) CreateCustomer(_ context.Context, name string) (uuid.UUID, error) {
	f.lastName = name
	return f.id, f.err
}

func (f *fakeCatalog) ListCustomers(_ context.Context, name string) ([]domain.Customer, error) {
	f.lastName = name
	return []domain.Customer{{ID: f.id, Name: "ALICE"}}, f.err
}

func (f *fakeCatalog) RenameCustomer(_ context.Context, id uuid.UUID, name string) error {
	f.lastID, f.lastName = id, name
	return f.err
}

func (f *fakeCatalog) RenameBranch(_ context.Context, id uuid.UUID, name string) error {
	f.lastID, f.lastName = id, name
	return f.err
}

func (f *fakeCatalog) CreateBranch(_ context.Context, name string) (uuid.UUID, error) {
	f.lastName = name
	return f.id, f.err
}

func (f *fakeCatalog) ListBranches(_ context.Context, name string) ([]domain.Branch, error) {
	f.lastName = name
	return nil, f.err
}

func (f *fakeCatalog) CreateProduct(_ context.Context, name string, _ decimal.Decimal) (int64, error) {
	f.lastName = name
	return 3, f.err
}

func (f *fakeCatalog) ListProducts(_ context.Context, name string) ([]domain.Product, error) {
	f.lastName = name
	return f.products, f.err
}

func sampleView() *domain.SaleView {
	view := &domain.SaleView{
		ID:           12,
		Status:       domain.SaleStatusPending,
		CustomerID:   uuid.New(),
		CustomerName: "ALICE",
		BranchID:     uuid.New(),
		BranchName:   "DOWNTOWN",
	}
	view.AppendItem(domain.SaleItemView{ID: 1, SaleID: 12, ProductID: 5, ProductName: "BEER", Quantity: 10, UnitPrice: decimal.RequireFromString("2.50"), Discount: decimal.RequireFromString("5.00")})
	return view
}
