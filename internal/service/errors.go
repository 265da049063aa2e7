package service

import (
	"errors"
	"fmt"

	"backend/internal/validation"
)

var (
	// ErrForbidden is a binary authorization denial. It carries no
	// detail about which rule failed.
	ErrForbidden = errors.New("permission denied")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError carries the collected field-level messages of a
// rejected create/update. Nothing was written when this is returned.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// StockError reports insufficient inventory for one product during
// invoice creation. The whole transaction was rolled back.
type StockError struct {
	ProductName string
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Not enough quantity for %s. Available: %d", e.ProductName, e.Available)
}
