package analytics_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M7sN2/asilsys-server/analytics"
	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
	"github.com/M7sN2/asilsys-server/invoicing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func invoiceAt(day int, customer string, grand, paid string, items ...billing.LineItem) invoicing.Invoice {
	g, p := dec(grand), dec(paid)
	return invoicing.Invoice{
		CustomerID: billing.CustomerID(customer),
		Items:      items,
		PaidAmount: p,
		Totals:     billing.InvoiceTotals{GrandTotal: g, Remaining: g.Sub(p)},
		CreatedAt:  time.Date(2025, time.June, day, 10, 0, 0, 0, time.UTC),
	}
}

func TestSummarize(t *testing.T) {
	products := []catalog.Product{
		{ID: "p1", Name: "Water", Unit: "carton", SubUnit: "piece",
			ConversionFactor: dec("24"), Stock: dec("1"), MinStock: dec("2")},
		{ID: "p2", Name: "Tea", Unit: "box", ConversionFactor: dec("1"),
			Stock: dec("50"), MinStock: dec("5")},
	}
	customers := []invoicing.Customer{
		{ID: "c1", Balance: dec("120")},
		{ID: "c2", Balance: dec("-20")}, // credit reduces total debt
	}
	invoices := []invoicing.Invoice{
		invoiceAt(1, "c1", "100", "100",
			billing.LineItem{ProductID: "p2", Name: "Tea", Unit: "box", Quantity: dec("10"), UnitPrice: dec("10")}),
		invoiceAt(5, "c1", "96", "50",
			billing.LineItem{ProductID: "p1", Name: "Water", Unit: "piece", Quantity: dec("24"), UnitPrice: dec("4")}),
		invoiceAt(20, "c2", "500", "0",
			billing.LineItem{ProductID: "p2", Name: "Tea", Unit: "box", Quantity: dec("50"), UnitPrice: dec("10")}),
	}

	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	s := analytics.Summarize(invoices, products, customers, &from, &to)

	assert.Equal(t, 2, s.InvoiceCount, "invoice outside the range is excluded")
	assert.True(t, s.Revenue.Equal(dec("196")))
	assert.True(t, s.Collected.Equal(dec("150")))
	assert.True(t, s.Outstanding.Equal(dec("46")))
	assert.True(t, s.CustomerDebt.Equal(dec("100")), "debt is period-independent")

	require.Len(t, s.LowStock, 1)
	assert.Equal(t, "Water", s.LowStock[0].Name)

	require.Len(t, s.TopProducts, 2)
	assert.Equal(t, "Tea", s.TopProducts[0].Name, "ranked by revenue")
	assert.True(t, s.TopProducts[1].Quantity.Equal(dec("1")), "24 pieces = 1 carton")
}

func TestSummarize_Empty(t *testing.T) {
	s := analytics.Summarize(nil, nil, nil, nil, nil)
	assert.Zero(t, s.InvoiceCount)
	assert.True(t, s.Revenue.IsZero())
	assert.Empty(t, s.TopProducts)
}
