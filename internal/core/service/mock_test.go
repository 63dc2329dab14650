package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/sales/internal/core/domain"
	"github.com/rl1809/sales/internal/port"
)

// mockDB is an in-memory port.Database. Writes are staged in the unit of
// work and applied on Commit, so a rolled back unit leaves no trace.
type mockDB struct {
	mu        sync.Mutex
	customers map[uuid.UUID]domain.Customer
	branches  map[uuid.UUID]domain.Branch
	products  map[int64]domain.Product
	sales     map[int64]*domain.Sale

	nextSaleID    int64
	nextItemID    int64
	nextProductID int64

	commitResult *bool // forces Commit's result when set
	commitErr    error
	commits      int
	productReads int

	// afterGetView runs once a view has been read, outside the lock
	afterGetView func()
}

func newMockDB() *mockDB {
	return &mockDB{
		customers: make(map[uuid.UUID]domain.Customer),
		branches:  make(map[uuid.UUID]domain.Branch),
		products:  make(map[int64]domain.Product),
		sales:     make(map[int64]*domain.Sale),
	}
}

func (m *mockDB) addCustomer(name string) domain.Customer {
	c := domain.NewCustomer(name)
	m.customers[c.ID] = *c
	return *c
}

func (m *mockDB) addBranch(name string) domain.Branch {
	b := domain.NewBranch(name)
	m.branches[b.ID] = *b
	return *b
}

func (m *mockDB) addProduct(id int64, name string, price string) domain.Product {
	p := domain.Product{ID: id, Name: domain.NormalizeName(name), Price: mustDecimal(price)}
	m.products[id] = p
	return p
}

func (m *mockDB) failCommit() {
	f := false
	m.commitResult = &f
}

func (m *mockDB) saleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

func (m *mockDB) Begin(ctx context.Context) (port.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &mockUnitOfWork{db: m, tracked: make(map[int64]*trackedSale)}, nil
}

type trackedSale struct {
	sale      *domain.Sale
	updatedAt int64
	isNew     bool
	removed   bool
}

// trackedParty is a customer or branch loaded for modification.
type trackedParty struct {
	loaded string
	name   func() string
	apply  func(m *mockDB)
}

type mockUnitOfWork struct {
	db               *mockDB
	tracked          map[int64]*trackedSale
	trackedParties   []trackedParty
	pending          []*domain.Sale
	pendingCustomers []domain.Customer
	pendingBranches  []domain.Branch
	pendingProducts  []*domain.Product
	done             bool
}

func (u *mockUnitOfWork) Customers() port.CustomerRepository { return mockCustomers{u} }
func (u *mockUnitOfWork) Branches() port.BranchRepository   { return mockBranches{u} }
func (u *mockUnitOfWork) Products() port.ProductRepository  { return mockProducts{u} }
func (u *mockUnitOfWork) Sales() port.SaleRepository        { return mockSales{u} }

func (u *mockUnitOfWork) Commit(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m := u.db
	m.mu.Lock()
	defer m.mu.Unlock()

	u.done = true
	m.commits++
	if m.commitErr != nil {
		return false, m.commitErr
	}

	affected := len(u.pending) + len(u.pendingCustomers) + len(u.pendingBranches) + len(u.pendingProducts)
	for _, t := range u.tracked {
		if t.removed || t.sale.UpdatedAt().UnixNano() != t.updatedAt {
			affected++
		}
	}
	for _, p := range u.trackedParties {
		if p.name() != p.loaded {
			affected++
		}
	}
	if m.commitResult != nil && !*m.commitResult {
		return false, nil
	}
	if affected == 0 {
		return false, nil
	}

	for _, sale := range u.pending {
		m.nextSaleID++
		sale.AssignID(m.nextSaleID)
		for i := range sale.Items() {
			m.nextItemID++
			sale.AssignItemID(i, m.nextItemID)
		}
		m.sales[sale.ID()] = sale
	}
	for _, t := range u.tracked {
		if t.removed {
			delete(m.sales, t.sale.ID())
			continue
		}
		m.sales[t.sale.ID()] = t.sale
	}
	for _, p := range u.trackedParties {
		p.apply(m)
	}
	for _, c := range u.pendingCustomers {
		m.customers[c.ID] = c
	}
	for _, b := range u.pendingBranches {
		m.branches[b.ID] = b
	}
	for _, p := range u.pendingProducts {
		m.nextProductID++
		p.ID = m.nextProductID
		m.products[p.ID] = *p
	}
	return true, nil
}

func (u *mockUnitOfWork) Rollback() error {
	u.done = true
	return nil
}

type mockCustomers struct{ u *mockUnitOfWork }

func (r mockCustomers) Create(ctx context.Context, c *domain.Customer) error {
	r.u.pendingCustomers = append(r.u.pendingCustomers, *c)
	return nil
}

func (r mockCustomers) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	c, err := r.GetByIDReadOnly(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}
	r.u.trackedParties = append(r.u.trackedParties, trackedParty{
		loaded: c.Name,
		name:   func() string { return c.Name },
		apply:  func(m *mockDB) { m.customers[c.ID] = *c },
	})
	return c, nil
}

func (r mockCustomers) GetByIDReadOnly(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	c, ok := r.u.db.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r mockCustomers) List(ctx context.Context, name string) ([]domain.Customer, error) {
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	var out []domain.Customer
	for _, c := range r.u.db.customers {
		if strings.Contains(c.Name, strings.ToUpper(name)) {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockBranches struct{ u *mockUnitOfWork }

func (r mockBranches) Create(ctx context.Context, b *domain.Branch) error {
	r.u.pendingBranches = append(r.u.pendingBranches, *b)
	return nil
}

func (r mockBranches) GetByID(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	b, err := r.GetByIDReadOnly(ctx, id)
	if err != nil || b == nil {
		return nil, err
	}
	r.u.trackedParties = append(r.u.trackedParties, trackedParty{
		loaded: b.Name,
		name:   func() string { return b.Name },
		apply:  func(m *mockDB) { m.branches[b.ID] = *b },
	})
	return b, nil
}

func (r mockBranches) GetByIDReadOnly(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	b, ok := r.u.db.branches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r mockBranches) List(ctx context.Context, name string) ([]domain.Branch, error) {
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	var out []domain.Branch
	for _, b := range r.u.db.branches {
		if strings.Contains(b.Name, strings.ToUpper(name)) {
			out = append(out, b)
		}
	}
	return out, nil
}

type mockProducts struct{ u *mockUnitOfWork }

func (r mockProducts) Create(ctx context.Context, p *domain.Product) error {
	r.u.pendingProducts = append(r.u.pendingProducts, p)
	return nil
}

func (r mockProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	p, ok := r.u.db.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r mockProducts) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	r.u.db.productReads++
	var out []domain.Product
	for _, id := range ids {
		if p, ok := r.u.db.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r mockProducts) List(ctx context.Context, name string) ([]domain.Product, error) {
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	var out []domain.Product
	for _, p := range r.u.db.products {
		if strings.Contains(p.Name, strings.ToUpper(name)) {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockSales struct{ u *mockUnitOfWork }

func (r mockSales) Create(ctx context.Context, sale *domain.Sale) error {
	r.u.pending = append(r.u.pending, sale)
	return nil
}

// GetByID hands out a private copy so uncommitted changes stay invisible.
func (r mockSales) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	stored, ok := r.u.db.sales[id]
	if !ok {
		return nil, nil
	}
	sale := domain.RestoreSale(stored.ID(), stored.Status(), stored.CustomerID(), stored.BranchID(), stored.CreatedAt(), stored.UpdatedAt(), stored.Items())
	r.u.tracked[id] = &trackedSale{sale: sale, updatedAt: sale.UpdatedAt().UnixNano()}
	return sale, nil
}

func (r mockSales) GetView(ctx context.Context, id int64) (*domain.SaleView, error) {
	r.u.db.mu.Lock()
	sale, ok := r.u.db.sales[id]
	if !ok {
		r.u.db.mu.Unlock()
		return nil, nil
	}
	view := r.u.db.viewOf(sale)
	hook := r.u.db.afterGetView
	r.u.db.afterGetView = nil
	r.u.db.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &view, nil
}

func (r mockSales) List(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleView, error) {
	r.u.db.mu.Lock()
	defer r.u.db.mu.Unlock()
	var out []domain.SaleView
	for _, sale := range r.u.db.sales {
		if filter.SaleID != 0 && sale.ID() != filter.SaleID {
			continue
		}
		view := r.u.db.viewOf(sale)
		if !strings.Contains(view.CustomerName, strings.ToUpper(filter.CustomerName)) {
			continue
		}
		if !strings.Contains(view.BranchName, strings.ToUpper(filter.BranchName)) {
			continue
		}
		out = append(out, view)
	}
	return out, nil
}

func (r mockSales) Remove(ctx context.Context, sale *domain.Sale) error {
	t, ok := r.u.tracked[sale.ID()]
	if !ok {
		t = &trackedSale{sale: sale}
		r.u.tracked[sale.ID()] = t
	}
	t.removed = true
	return nil
}

func (m *mockDB) viewOf(sale *domain.Sale) domain.SaleView {
	view := domain.SaleView{
		ID:           sale.ID(),
		Status:       sale.Status(),
		CustomerID:   sale.CustomerID(),
		CustomerName: m.customers[sale.CustomerID()].Name,
		BranchID:     sale.BranchID(),
		BranchName:   m.branches[sale.BranchID()].Name,
		CreatedAt:    sale.CreatedAt(),
		UpdatedAt:    sale.UpdatedAt(),
	}
	for _, item := range sale.Items() {
		view.AppendItem(domain.SaleItemView{
			ID:          item.ID(),
			SaleID:      item.SaleID(),
			ProductID:   item.ProductID(),
			ProductName: m.products[item.ProductID()].Name,
			Quantity:    item.Quantity(),
			UnitPrice:   item.UnitPrice(),
			Discount:    item.Discount(),
		})
	}
	return view
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *mockPublisher) Publish(ctx context.Context, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *mockPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName())
	}
	return names
}

type mockCache struct {
	mu          sync.Mutex
	views       map[int64]domain.SaleView
	versions    map[int64]int64
	invalidated []int64
}

func newMockCache() *mockCache {
	return &mockCache{views: make(map[int64]domain.SaleView), versions: make(map[int64]int64)}
}

func (c *mockCache) GetSaleView(ctx context.Context, saleID int64) (*domain.SaleView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[saleID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *mockCache) SaleViewVersion(ctx context.Context, saleID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[saleID], nil
}

func (c *mockCache) SetSaleView(ctx context.Context, view domain.SaleView, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[view.ID] != version {
		return nil
	}
	c.views[view.ID] = view
	return nil
}

func (c *mockCache) InvalidateSale(ctx context.Context, saleID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[saleID]++
	delete(c.views, saleID)
	c.invalidated = append(c.invalidated, saleID)
	return nil
}
