package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
	"github.com/M7sN2/asilsys-server/invoicing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCustomerRoundTrip(t *testing.T) {
	// GIVEN a saved customer
	st := newTestStore(t)
	ctx := context.Background()

	c := invoicing.Customer{
		ID:      "cust-1",
		Name:    "Ahmed",
		Phone:   "0501234567",
		Balance: decimal.RequireFromString("1150.50"),
	}
	require.NoError(t, st.SaveCustomer(ctx, c))

	// WHEN reading it back
	got, err := st.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// THEN all fields survive, balance exactly
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Phone, got.Phone)
	assert.True(t, got.Balance.Equal(c.Balance))

	// AND an update overwrites in place
	c.Balance = decimal.RequireFromString("-25.75")
	require.NoError(t, st.SaveCustomer(ctx, c))
	got, err = st.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("-25.75")))
}

func TestGetCustomerMissing(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetCustomer(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProductRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := catalog.Product{
		ID:               "prod-1",
		Name:             "Water",
		Barcode:          "629104",
		Unit:             "carton",
		SubUnit:          "bottle",
		ConversionFactor: decimal.NewFromInt(24),
		UnitPrice:        decimal.RequireFromString("48.00"),
		SubUnitPrice:     decimal.RequireFromString("2.50"),
		Stock:            decimal.RequireFromString("10.5"),
		MinStock:         decimal.NewFromInt(3),
	}
	require.NoError(t, st.SaveProduct(ctx, p))

	got, err := st.GetProduct(ctx, "prod-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, billing.Unit("bottle"), got.SubUnit)
	assert.True(t, got.ConversionFactor.Equal(decimal.NewFromInt(24)))
	assert.True(t, got.Stock.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, got.SubUnitPrice.Equal(decimal.RequireFromString("2.50")))
}

func TestInvoiceRoundTripWithSnapshot(t *testing.T) {
	// GIVEN an invoice with items and a recorded snapshot
	st := newTestStore(t)
	ctx := context.Background()

	inv := invoicing.Invoice{
		ID:         "inv-1",
		Number:     7,
		CustomerID: "cust-1",
		Items: []billing.LineItem{
			{ProductID: "prod-1", Name: "Water", Unit: "carton",
				Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("48.00")},
		},
		TaxRatePercent: decimal.NewFromInt(15),
		PaidAmount:     decimal.NewFromInt(50),
		Totals: billing.InvoiceTotals{
			Subtotal:   decimal.RequireFromString("96.00"),
			TaxAmount:  decimal.RequireFromString("14.40"),
			GrandTotal: decimal.RequireFromString("110.40"),
			Remaining:  decimal.RequireFromString("60.40"),
		},
		Snapshot: &billing.BalanceSnapshot{
			OldBalance:          decimal.NewFromInt(1000),
			OldBalancePlusTotal: decimal.RequireFromString("1110.40"),
			NewBalance:          decimal.RequireFromString("1060.40"),
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.SaveInvoice(ctx, inv))

	// WHEN reading it back
	got, err := st.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// THEN items, totals, and the snapshot survive intact
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, got.Totals.TaxAmount.Equal(decimal.RequireFromString("14.40")))
	require.NotNil(t, got.Snapshot)
	assert.True(t, got.Snapshot.NewBalance.Equal(decimal.RequireFromString("1060.40")))
}

func TestInvoiceWithoutSnapshot(t *testing.T) {
	// Rows saved without a snapshot read back as Snapshot == nil.
	st := newTestStore(t)
	ctx := context.Background()

	inv := invoicing.Invoice{
		ID:         "inv-legacy",
		Number:     1,
		CustomerID: "cust-1",
		Items: []billing.LineItem{
			{ProductID: "p", Name: "Tea", Unit: "piece",
				Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
		Totals: billing.InvoiceTotals{
			Subtotal:   decimal.NewFromInt(10),
			GrandTotal: decimal.NewFromInt(10),
			Remaining:  decimal.NewFromInt(10),
		},
	}
	require.NoError(t, st.SaveInvoice(ctx, inv))

	got, err := st.GetInvoice(ctx, "inv-legacy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Snapshot)
}

func TestNextInvoiceNumber(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	n, err := st.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, st.SaveInvoice(ctx, invoicing.Invoice{
		ID: "inv-5", Number: 5, CustomerID: "c",
		Items: []billing.LineItem{}, Totals: billing.InvoiceTotals{
			Subtotal: decimal.Zero, GrandTotal: decimal.Zero, Remaining: decimal.Zero,
		},
	}))

	n, err = st.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestListInvoicesByCustomer(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i, cust := range []billing.CustomerID{"a", "b", "a"} {
		require.NoError(t, st.SaveInvoice(ctx, invoicing.Invoice{
			ID: billing.InvoiceID(fmt.Sprintf("inv-%d", i+1)), Number: int64(i + 1), CustomerID: cust,
			Items: []billing.LineItem{}, Totals: billing.InvoiceTotals{
				Subtotal: decimal.Zero, GrandTotal: decimal.Zero, Remaining: decimal.Zero,
			},
		}))
	}

	got, err := st.ListInvoicesByCustomer(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest number first.
	assert.Equal(t, int64(3), got[0].Number)
	assert.Equal(t, int64(1), got[1].Number)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	// GIVEN a customer saved outside any transaction
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveCustomer(ctx, invoicing.Customer{
		ID: "cust-1", Name: "Ahmed", Balance: decimal.NewFromInt(100),
	}))

	// WHEN a transaction writes and then fails
	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx invoicing.Store) error {
		if err := tx.SaveCustomer(ctx, invoicing.Customer{
			ID: "cust-1", Name: "Ahmed", Balance: decimal.NewFromInt(999),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// THEN the write was rolled back
	got, err := st.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
}
