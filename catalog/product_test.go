package catalog_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cartonProduct() catalog.Product {
	// A carton of 24 pieces, 10 cartons on hand.
	return catalog.Product{
		ID:               "p-1",
		Name:             "Mineral Water",
		Unit:             "carton",
		SubUnit:          "piece",
		ConversionFactor: dec("24"),
		UnitPrice:        dec("48"),
		SubUnitPrice:     dec("2.5"),
		Stock:            dec("10"),
		MinStock:         dec("2"),
	}
}

func TestProduct_AvailableIn(t *testing.T) {
	p := cartonProduct()

	inCartons, err := p.AvailableIn("carton")
	require.NoError(t, err)
	assert.True(t, inCartons.Equal(dec("10")))

	inPieces, err := p.AvailableIn("piece")
	require.NoError(t, err)
	assert.True(t, inPieces.Equal(dec("240")))

	_, err = p.AvailableIn("pallet")
	assert.ErrorIs(t, err, billing.ErrUnknownUnit)
}

func TestProduct_BaseQuantity(t *testing.T) {
	p := cartonProduct()

	base, err := p.BaseQuantity(dec("3"), "carton")
	require.NoError(t, err)
	assert.True(t, base.Equal(dec("3")))

	// 12 pieces = half a carton
	base, err = p.BaseQuantity(dec("12"), "piece")
	require.NoError(t, err)
	assert.True(t, base.Equal(dec("0.5")))
}

func TestProduct_IsLowStock(t *testing.T) {
	p := cartonProduct()
	assert.False(t, p.IsLowStock())

	p.Stock = dec("2")
	assert.True(t, p.IsLowStock(), "at the threshold counts as low")

	p.MinStock = decimal.Zero
	assert.False(t, p.IsLowStock(), "zero threshold disables the alert")
}

func TestStockSet_AvailableStock(t *testing.T) {
	set := catalog.NewStockSet([]catalog.Product{cartonProduct()})

	avail, err := set.AvailableStock("p-1", "piece")
	require.NoError(t, err)
	assert.True(t, avail.Equal(dec("240")))

	_, err = set.AvailableStock("p-2", "piece")
	assert.ErrorIs(t, err, billing.ErrUnknownUnit)
}
