/*
errors.go - Error taxonomy for the billing engine and its callers

PURPOSE:
  All sentinel errors in one place. Domain packages wrap these with
  additional context; HTTP handlers map them to status codes through the
  helpers at the bottom.

USAGE:
  var stockErr *billing.InsufficientStockError
  if errors.As(err, &stockErr) {
      // present stockErr.Addable to the user
  }
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientStock is returned when a line-item merge would exceed
	// the available stock for a product+unit.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnknownUnit is returned when a line item names a unit the product
	// does not sell in.
	ErrUnknownUnit = errors.New("unknown sale unit")

	// ErrCustomerNotFound is returned when a referenced customer doesn't exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrProductNotFound is returned when a referenced product doesn't exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrEmptyInvoice is returned when saving an invoice with no line items.
	ErrEmptyInvoice = errors.New("invoice has no line items")

	// ErrInvalidQuantity is returned when a line item's quantity is not
	// strictly positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports a stock-ceiling violation. Addable is the
// maximum quantity that could still be added for this product+unit, which
// the UI shows to the user.
type InsufficientStockError struct {
	ProductID ProductID
	Name      string
	Unit      Unit
	Available decimal.Decimal
	Requested decimal.Decimal
	Addable   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): available %s, requested %s",
		e.ProductID, e.Unit, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrUnknownUnit) ||
		errors.Is(err, ErrEmptyInvoice) ||
		errors.Is(err, ErrInvalidQuantity)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}
