package printing_test

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/invoicing"
	"github.com/M7sN2/asilsys-server/printing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRenderInvoice_ProducesPDF(t *testing.T) {
	snap := billing.BalanceSnapshot{
		OldBalance:          dec("1000"),
		OldBalancePlusTotal: dec("1200"),
		NewBalance:          dec("1150"),
	}
	inv := invoicing.Invoice{
		Number:     42,
		CustomerID: "c1",
		Items: []billing.LineItem{
			{ProductID: "p1", Name: "Mineral Water", Unit: "carton", Quantity: dec("2"), UnitPrice: dec("48")},
			{ProductID: "p2", Name: "Green Tea", Unit: "box", Quantity: dec("1"), UnitPrice: dec("104")},
		},
		TaxRatePercent: dec("0"),
		PaidAmount:     dec("50"),
		Totals:         billing.InvoiceTotals{Subtotal: dec("200"), GrandTotal: dec("200"), Remaining: dec("150")},
		Snapshot:       &snap,
	}
	cust := invoicing.Customer{ID: "c1", Name: "Corner Shop", Balance: dec("1150")}

	var buf bytes.Buffer
	err := printing.RenderInvoice(&buf, inv, cust, printing.Options{CompanyName: "AsilSys Trading"})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output is a PDF document")
	assert.Greater(t, buf.Len(), 500)
}
