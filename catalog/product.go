/*
Package catalog owns products, their sale units, and stock resolution.

A product sells in up to two units: a main unit (carton, box) and an
optional sub-unit (piece, strip) related by a conversion factor - how many
sub-units one main unit contains. Stock is held in main units; asking for
availability in the sub-unit multiplies through the factor.

The billing engine consults this package only through the StockLookup
contract when enforcing the stock-ceiling guard; stock mutation happens in
the invoicing service, never in billing.
*/
package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/M7sN2/asilsys-server/billing"
)

// Product is a catalog entry.
type Product struct {
	ID      billing.ProductID
	Name    string
	Barcode string

	// Unit is the main sale unit; SubUnit is the optional smaller one.
	// ConversionFactor is sub-units per main unit and is 1 when there is
	// no sub-unit.
	Unit             billing.Unit
	SubUnit          billing.Unit
	ConversionFactor decimal.Decimal

	// Prices per sale unit.
	UnitPrice    decimal.Decimal
	SubUnitPrice decimal.Decimal
	CostPrice    decimal.Decimal

	// Stock on hand, in main units. MinStock is the low-stock alert
	// threshold, also in main units.
	Stock    decimal.Decimal
	MinStock decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SellsIn reports whether the product can be sold in the given unit.
func (p Product) SellsIn(unit billing.Unit) bool {
	return unit == p.Unit || (p.SubUnit != "" && unit == p.SubUnit)
}

// AvailableIn returns the stock on hand expressed in the given sale unit.
func (p Product) AvailableIn(unit billing.Unit) (decimal.Decimal, error) {
	switch {
	case unit == p.Unit:
		return p.Stock, nil
	case p.SubUnit != "" && unit == p.SubUnit:
		return p.Stock.Mul(p.ConversionFactor), nil
	default:
		return decimal.Zero, billing.ErrUnknownUnit
	}
}

// PriceFor returns the unit price for the given sale unit.
func (p Product) PriceFor(unit billing.Unit) (decimal.Decimal, error) {
	switch {
	case unit == p.Unit:
		return p.UnitPrice, nil
	case p.SubUnit != "" && unit == p.SubUnit:
		return p.SubUnitPrice, nil
	default:
		return decimal.Zero, billing.ErrUnknownUnit
	}
}

// BaseQuantity converts a quantity in the given sale unit to main units,
// which is the denomination stock movements are recorded in.
func (p Product) BaseQuantity(qty decimal.Decimal, unit billing.Unit) (decimal.Decimal, error) {
	switch {
	case unit == p.Unit:
		return qty, nil
	case p.SubUnit != "" && unit == p.SubUnit:
		return qty.Div(p.ConversionFactor), nil
	default:
		return decimal.Zero, billing.ErrUnknownUnit
	}
}

// IsLowStock reports whether stock has fallen to or below the threshold.
func (p Product) IsLowStock() bool {
	return !p.MinStock.IsZero() && p.Stock.LessThanOrEqual(p.MinStock)
}

// =============================================================================
// STOCK SET - A point-in-time view implementing billing.StockLookup
// =============================================================================

type stockKey struct {
	Product billing.ProductID
	Unit    billing.Unit
}

// StockSet is a snapshot of per-unit availability taken from a set of
// products. It answers the billing engine's stock-ceiling lookups without
// touching storage mid-computation.
type StockSet map[stockKey]decimal.Decimal

// NewStockSet expands products into per-unit availability entries.
func NewStockSet(products []Product) StockSet {
	set := make(StockSet, len(products)*2)
	for _, p := range products {
		set[stockKey{p.ID, p.Unit}] = p.Stock
		if p.SubUnit != "" {
			set[stockKey{p.ID, p.SubUnit}] = p.Stock.Mul(p.ConversionFactor)
		}
	}
	return set
}

// AvailableStock implements billing.StockLookup.
func (s StockSet) AvailableStock(id billing.ProductID, unit billing.Unit) (decimal.Decimal, error) {
	avail, ok := s[stockKey{id, unit}]
	if !ok {
		return decimal.Zero, billing.ErrUnknownUnit
	}
	return avail, nil
}
