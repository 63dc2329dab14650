package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinNameLength = 2
	MaxNameLength = 100

	// PriceScale is the number of decimal places a product price is stored with.
	PriceScale = 2
)

var ErrProductPriceInvalid = errors.New("price must be a positive value")

// NormalizeName trims surrounding whitespace and upper-cases the name.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// ValidateName returns a human readable reason when name is not acceptable
// for a customer, branch or product, or "" when it is.
func ValidateName(name string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n == 0:
		return "Name is required"
	case n < MinNameLength:
		return fmt.Sprintf("Name must be at least %d characters long", MinNameLength)
	case n > MaxNameLength:
		return fmt.Sprintf("Name must not exceed %d characters", MaxNameLength)
	}
	return ""
}

type Customer struct {
	ID   uuid.UUID
	Name string
}

func NewCustomer(name string) *Customer {
	return &Customer{ID: uuid.New(), Name: NormalizeName(name)}
}

func (c *Customer) Rename(name string) {
	c.Name = NormalizeName(name)
}

type Branch struct {
	ID   uuid.UUID
	Name string
}

func NewBranch(name string) *Branch {
	return &Branch{ID: uuid.New(), Name: NormalizeName(name)}
}

func (b *Branch) Rename(name string) {
	b.Name = NormalizeName(name)
}

type Product struct {
	ID    int64 // assigned by storage
	Name  string
	Price decimal.Decimal
}

func NewProduct(name string, price decimal.Decimal) (*Product, error) {
	if price.IsNegative() {
		return nil, ErrProductPriceInvalid
	}
	return &Product{Name: NormalizeName(name), Price: price.Round(PriceScale)}, nil
}
