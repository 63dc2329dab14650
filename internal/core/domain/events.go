package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventSaleCreated     = "sale.created"
	EventSaleModified    = "sale.modified"
	EventSaleCancelled   = "sale.cancelled"
	EventSaleCompleted   = "sale.completed"
	EventSaleDeleted     = "sale.deleted"
	EventCustomerCreated = "customer.created"
	EventBranchCreated   = "branch.created"
	EventProductCreated  = "product.created"
)

type Event interface {
	EventName() string
}

// SaleSummary is the payload shared by every sale event.
type SaleSummary struct {
	SaleID      int64           `json:"sale_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	Status      SaleStatus      `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func summarize(s *Sale) SaleSummary {
	return SaleSummary{
		SaleID:      s.ID(),
		CustomerID:  s.CustomerID(),
		BranchID:    s.BranchID(),
		Status:      s.Status(),
		TotalAmount: s.TotalAmount(),
		OccurredAt:  time.Now().UTC(),
	}
}

type SaleCreated struct{ SaleSummary }
type SaleModified struct{ SaleSummary }
type SaleCancelled struct{ SaleSummary }
type SaleCompleted struct{ SaleSummary }
type SaleDeleted struct{ SaleSummary }

func NewSaleCreated(s *Sale) SaleCreated     { return SaleCreated{summarize(s)} }
func NewSaleModified(s *Sale) SaleModified   { return SaleModified{summarize(s)} }
func NewSaleCancelled(s *Sale) SaleCancelled { return SaleCancelled{summarize(s)} }
func NewSaleCompleted(s *Sale) SaleCompleted { return SaleCompleted{summarize(s)} }
func NewSaleDeleted(s *Sale) SaleDeleted     { return SaleDeleted{summarize(s)} }

func (SaleCreated) EventName() string   { return EventSaleCreated }
func (SaleModified) EventName() string  { return EventSaleModified }
func (SaleCancelled) EventName() string { return EventSaleCancelled }
func (SaleCompleted) EventName() string { return EventSaleCompleted }
func (SaleDeleted) EventName() string   { return EventSaleDeleted }

type CustomerCreated struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

type BranchCreated struct {
	BranchID   uuid.UUID `json:"branch_id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ProductCreated struct {
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (CustomerCreated) EventName() string { return EventCustomerCreated }
func (BranchCreated) EventName() string   { return EventBranchCreated }
func (ProductCreated) EventName() string  { return EventProductCreated }
