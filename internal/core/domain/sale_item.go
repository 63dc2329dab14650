package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

const MaxItemQuantity = 20

var (
	ErrItemQuantityLimit    = errors.New("cannot sell more than 20 identical items")
	ErrItemQuantityInvalid  = errors.New("item quantity must be at least 1")
	ErrItemUnitPriceInvalid = errors.New("item unit price cannot be negative")
)

var (
	tierTenPercent    = decimal.RequireFromString("0.10")
	tierTwentyPercent = decimal.RequireFromString("0.20")
)

type SaleItem struct {
	id         int64
	saleID     int64
	productID  int64
	quantity   int
	unitPrice  decimal.Decimal
	discount   decimal.Decimal
	totalPrice decimal.Decimal
}

func newSaleItem(productID int64, quantity int, unitPrice decimal.Decimal) (SaleItem, error) {
	item := SaleItem{productID: productID}
	if err := item.reprice(quantity, unitPrice); err != nil {
		return SaleItem{}, err
	}
	return item, nil
}

// RestoreSaleItem rebuilds a persisted line item. Discount and total are
// recomputed from quantity and unit price.
func RestoreSaleItem(id, saleID, productID int64, quantity int, unitPrice decimal.Decimal) (SaleItem, error) {
	item, err := newSaleItem(productID, quantity, unitPrice)
	if err != nil {
		return SaleItem{}, err
	}
	item.id = id
	item.saleID = saleID
	return item, nil
}

func (i SaleItem) ID() int64                   { return i.id }
func (i SaleItem) SaleID() int64               { return i.saleID }
func (i SaleItem) ProductID() int64            { return i.productID }
func (i SaleItem) Quantity() int               { return i.quantity }
func (i SaleItem) UnitPrice() decimal.Decimal  { return i.unitPrice }
func (i SaleItem) Discount() decimal.Decimal   { return i.discount }
func (i SaleItem) TotalPrice() decimal.Decimal { return i.totalPrice }

// reprice applies quantity and unit price and recomputes discount and total.
// The item is left untouched on error.
func (i *SaleItem) reprice(quantity int, unitPrice decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return ErrItemUnitPriceInvalid
	}
	discount, err := ItemDiscount(quantity, unitPrice)
	if err != nil {
		return err
	}

	i.quantity = quantity
	i.unitPrice = unitPrice
	i.discount = discount
	i.totalPrice = unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount)
	return nil
}

// ItemDiscount returns the quantity tier discount for a single line:
// nothing up to 4 units, 10% from 5 to 9 and 20% from 10 to 20.
func ItemDiscount(quantity int, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity > MaxItemQuantity {
		return decimal.Zero, ErrItemQuantityLimit
	}
	if quantity < 1 {
		return decimal.Zero, ErrItemQuantityInvalid
	}

	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	switch {
	case quantity >= 10:
		return gross.Mul(tierTwentyPercent), nil
	case quantity >= 5:
		return gross.Mul(tierTenPercent), nil
	default:
		return decimal.Zero, nil
	}
}
