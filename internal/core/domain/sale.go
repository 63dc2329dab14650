package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "Pending"
	SaleStatusCompleted SaleStatus = "Completed"
	SaleStatusCancelled SaleStatus = "Cancelled"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s. Completed and
// Cancelled are terminal.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	return s == SaleStatusPending && (next == SaleStatusCompleted || next == SaleStatusCancelled)
}

type Sale struct {
	id          int64 // zero until persisted
	status      SaleStatus
	customerID  uuid.UUID
	branchID    uuid.UUID
	items       []SaleItem
	totalAmount decimal.Decimal
	createdAt   time.Time
	updatedAt   time.Time
}

func NewSale(customerID, branchID uuid.UUID) *Sale {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &Sale{
		status:      SaleStatusPending,
		customerID:  customerID,
		branchID:    branchID,
		totalAmount: decimal.Zero,
		createdAt:   now,
		updatedAt:   now,
	}
}

// RestoreSale rebuilds a persisted sale. Used by storage adapters only.
func RestoreSale(id int64, status SaleStatus, customerID, branchID uuid.UUID, createdAt, updatedAt time.Time, items []SaleItem) *Sale {
	s := &Sale{
		id:         id,
		status:     status,
		customerID: customerID,
		branchID:   branchID,
		items:      append([]SaleItem(nil), items...),
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
	s.recalculateTotal()
	return s
}

func (s *Sale) ID() int64                    { return s.id }
func (s *Sale) Status() SaleStatus           { return s.status }
func (s *Sale) CustomerID() uuid.UUID        { return s.customerID }
func (s *Sale) BranchID() uuid.UUID          { return s.branchID }
func (s *Sale) TotalAmount() decimal.Decimal { return s.totalAmount }
func (s *Sale) CreatedAt() time.Time         { return s.createdAt }
func (s *Sale) UpdatedAt() time.Time         { return s.updatedAt }

// Items returns a copy of the line items in insertion order.
func (s *Sale) Items() []SaleItem {
	return append([]SaleItem(nil), s.items...)
}

// AssignID sets the storage-generated identity and back-references it from
// every item.
func (s *Sale) AssignID(id int64) {
	s.id = id
	for i := range s.items {
		s.items[i].saleID = id
	}
}

// AssignItemID sets the storage-generated identity of the item at index i.
func (s *Sale) AssignItemID(i int, id int64) {
	if i < 0 || i >= len(s.items) {
		return
	}
	s.items[i].id = id
}

func (s *Sale) AddItem(productID int64, quantity int, unitPrice decimal.Decimal) error {
	item, err := newSaleItem(productID, quantity, unitPrice)
	if err != nil {
		return err
	}
	item.saleID = s.id

	s.items = append(s.items, item)
	s.touch()
	s.recalculateTotal()
	return nil
}

// RemoveItem drops the first item for productID. Unknown products are ignored.
func (s *Sale) RemoveItem(productID int64) {
	idx := s.indexOf(productID)
	if idx < 0 {
		return
	}

	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.touch()
	s.recalculateTotal()
}

// UpdateItem changes the quantity and/or unit price of the first item for
// productID. Nil arguments keep the current value.
func (s *Sale) UpdateItem(productID int64, quantity *int, unitPrice *decimal.Decimal) error {
	idx := s.indexOf(productID)
	if idx < 0 {
		return nil
	}

	item := s.items[idx]
	q, p := item.quantity, item.unitPrice
	if quantity != nil {
		q = *quantity
	}
	if unitPrice != nil {
		p = *unitPrice
	}
	if err := item.reprice(q, p); err != nil {
		return err
	}

	s.items[idx] = item
	s.touch()
	s.recalculateTotal()
	return nil
}

func (s *Sale) ClearItems() {
	s.items = nil
	s.touch()
	s.recalculateTotal()
}

func (s *Sale) UpdateCustomer(customerID uuid.UUID) {
	s.customerID = customerID
	s.touch()
}

func (s *Sale) UpdateBranch(branchID uuid.UUID) {
	s.branchID = branchID
	s.touch()
}

func (s *Sale) Cancel() {
	s.status = SaleStatusCancelled
	s.touch()
}

func (s *Sale) Complete() {
	s.status = SaleStatusCompleted
	s.touch()
}

func (s *Sale) indexOf(productID int64) int {
	for i := range s.items {
		if s.items[i].productID == productID {
			return i
		}
	}
	return -1
}

func (s *Sale) touch() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	// keep updatedAt strictly increasing so storage can detect changes
	if !now.After(s.updatedAt) {
		now = s.updatedAt.Add(time.Microsecond)
	}
	s.updatedAt = now
}

func (s *Sale) recalculateTotal() {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.totalPrice)
	}
	s.totalAmount = total
}
