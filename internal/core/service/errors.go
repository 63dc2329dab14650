package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrSaleNotFound = errors.New("sale not found")

	// ErrSaleConflict matches every *ConflictError.
	ErrSaleConflict = errors.New("sale status conflict")

	ErrSaleNotEditable      = &ConflictError{Message: "The sale can only be updated if it has a 'Pending' status"}
	ErrSaleAlreadyCancelled = &ConflictError{Message: "This sale has already been cancelled"}
	ErrSaleAlreadyCompleted = &ConflictError{Message: "This sale has already been completed"}

	ErrCustomerNotFound = errors.New("customer not found")
	ErrBranchNotFound   = errors.New("branch not found")

	ErrSaleNotCreated     = errors.New("sale not created")
	ErrSaleNotUpdated     = errors.New("sale not updated")
	ErrCustomerNotCreated = errors.New("customer not created")
	ErrCustomerNotUpdated = errors.New("customer not updated")
	ErrBranchNotCreated   = errors.New("branch not created")
	ErrBranchNotUpdated   = errors.New("branch not updated")
	ErrProductNotCreated  = errors.New("product not created")
)

// ConflictError reports an operation the sale's current status does not allow.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool {
	return target == ErrSaleConflict
}

// Failure is a single validation problem tied to the offending field.
type Failure struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failure collected for a request.
type ValidationError struct {
	Failures []Failure
}

func newValidationError(failures ...Failure) *ValidationError {
	return &ValidationError{Failures: failures}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
