package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItemView is the denormalized read model of a line item.
type SaleItemView struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// SaleView is the denormalized read model of a sale, carrying customer,
// branch and product names.
type SaleView struct {
	ID           int64           `json:"id"`
	Status       SaleStatus      `json:"status"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	BranchID     uuid.UUID       `json:"branch_id"`
	BranchName   string          `json:"branch_name"`
	Items        []SaleItemView  `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AppendItem adds item to the view, deriving its total price and the sale total.
func (v *SaleView) AppendItem(item SaleItemView) {
	item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Sub(item.Discount)
	v.Items = append(v.Items, item)
	v.TotalAmount = v.TotalAmount.Add(item.TotalPrice)
}

type SaleFilter struct {
	SaleID       int64
	CustomerName string // substring, case-insensitive
	BranchName   string // substring, case-insensitive
	Page         int    // 1-based
	PageSize     int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 1_000_000
)

// Normalize fills paging defaults and clamps page and page size so Offset
// stays within range.
func (f SaleFilter) Normalize() SaleFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

func (f SaleFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
