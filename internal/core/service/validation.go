package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales/internal/core/domain"
)

const (
	fieldSaleID     = "saleId"
	fieldCustomerID = "customerId"
	fieldBranchID   = "branchId"
	fieldItems      = "items"
	fieldName       = "name"
	fieldPrice      = "price"
)

// Validator holds the structural rules for incoming commands. It keeps no
// state and is shared by every service.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateCreateSale(cmd CreateSaleCommand) []Failure {
	return v.saleShape(cmd.CustomerID, cmd.BranchID, cmd.Items)
}

func (v *Validator) ValidateUpdateSale(routeSaleID int64, cmd UpdateSaleCommand) []Failure {
	var failures []Failure
	switch {
	case cmd.SaleID <= 0:
		failures = append(failures, Failure{fieldSaleID, "The sale ID must be provided"})
	case cmd.SaleID != routeSaleID:
		failures = append(failures, Failure{fieldSaleID, "Sale ID in the request body must match the sale ID in the route"})
	}
	return append(failures, v.saleShape(cmd.CustomerID, cmd.BranchID, cmd.Items)...)
}

func (v *Validator) ValidateSaleID(saleID int64) []Failure {
	if saleID <= 0 {
		return []Failure{{fieldSaleID, "The sale ID must be provided"}}
	}
	return nil
}

func (v *Validator) ValidateName(name string) []Failure {
	if msg := domain.ValidateName(name); msg != "" {
		return []Failure{{fieldName, msg}}
	}
	return nil
}

func (v *Validator) ValidateProduct(name string, price decimal.Decimal) []Failure {
	failures := v.ValidateName(name)
	if price.IsNegative() {
		failures = append(failures, Failure{fieldPrice, "Price must be a positive value"})
	}
	return failures
}

func (v *Validator) saleShape(customerID, branchID uuid.UUID, items []SaleItemInput) []Failure {
	var failures []Failure
	if customerID == uuid.Nil {
		failures = append(failures, Failure{fieldCustomerID, "The customer ID must be provided"})
	}
	if branchID == uuid.Nil {
		failures = append(failures, Failure{fieldBranchID, "The branch ID must be provided"})
	}
	if len(items) == 0 {
		failures = append(failures, Failure{fieldItems, "At least one item must be included in the sale"})
	}
	for i, item := range items {
		if item.ProductID <= 0 {
			failures = append(failures, Failure{fmt.Sprintf("items[%d].productId", i), "The product ID must be a positive number"})
		}
		if !validQuantity(item.Quantity) {
			failures = append(failures, Failure{fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("Quantity must be between 1 and %d items", domain.MaxItemQuantity)})
		}
	}
	return failures
}

func validQuantity(q int) bool {
	return q >= 1 && q <= domain.MaxItemQuantity
}

func customerNotFound() Failure {
	return Failure{fieldCustomerID, "The specified customer does not exist"}
}

func branchNotFound() Failure {
	return Failure{fieldBranchID, "The specified branch does not exist"}
}

func productNotFound(productID int64) Failure {
	return Failure{fmt.Sprintf("productId: %d", productID), fmt.Sprintf("Product with ID: %d was not found", productID)}
}
