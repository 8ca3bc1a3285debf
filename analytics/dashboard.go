/*
Package analytics computes dashboard summaries over fetched record sets.

The figures mirror what the sales dashboard shows: revenue and collections
for a period, outstanding receivables, total customer debt, low-stock
alerts, and the best-selling products. Everything is computed in memory from
the already-loaded invoices, products, and customers - the same record sets
the list screens work from.
*/
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
	"github.com/M7sN2/asilsys-server/invoicing"
)

// Summary is the dashboard payload.
type Summary struct {
	InvoiceCount int
	Revenue      decimal.Decimal // sum of grand totals in the period
	Collected    decimal.Decimal // sum of paid amounts
	Outstanding  decimal.Decimal // sum of remaining (period invoices only)
	CustomerDebt decimal.Decimal // sum of live customer balances, all time
	LowStock     []catalog.Product
	TopProducts  []ProductSales
}

// ProductSales aggregates sales of one product across the period, in the
// product's base (main) units.
type ProductSales struct {
	ProductID billing.ProductID
	Name      string
	Quantity  decimal.Decimal
	Revenue   decimal.Decimal
}

const topProductLimit = 5

// Summarize builds the dashboard for the given period. From/To are
// inclusive bounds on invoice creation; nil means unbounded.
func Summarize(invoices []invoicing.Invoice, products []catalog.Product, customers []invoicing.Customer, from, to *time.Time) Summary {
	byProduct := make(map[billing.ProductID]catalog.Product, len(products))
	for _, p := range products {
		byProduct[p.ID] = p
	}

	s := Summary{
		Revenue:      decimal.Zero,
		Collected:    decimal.Zero,
		Outstanding:  decimal.Zero,
		CustomerDebt: decimal.Zero,
	}

	sales := make(map[billing.ProductID]*ProductSales)
	for _, inv := range invoices {
		if from != nil && inv.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && inv.CreatedAt.After(*to) {
			continue
		}

		s.InvoiceCount++
		s.Revenue = s.Revenue.Add(inv.Totals.GrandTotal)
		s.Collected = s.Collected.Add(inv.PaidAmount)
		s.Outstanding = s.Outstanding.Add(inv.Totals.Remaining)

		for _, li := range inv.Items {
			ps, ok := sales[li.ProductID]
			if !ok {
				name := li.Name
				if p, found := byProduct[li.ProductID]; found {
					name = p.Name
				}
				ps = &ProductSales{ProductID: li.ProductID, Name: name,
					Quantity: decimal.Zero, Revenue: decimal.Zero}
				sales[li.ProductID] = ps
			}

			qty := li.Quantity
			if p, found := byProduct[li.ProductID]; found {
				if base, err := p.BaseQuantity(li.Quantity, li.Unit); err == nil {
					qty = base
				}
			}
			ps.Quantity = ps.Quantity.Add(qty)
			ps.Revenue = ps.Revenue.Add(li.Total())
		}
	}

	for _, c := range customers {
		s.CustomerDebt = s.CustomerDebt.Add(c.Balance)
	}

	for _, p := range products {
		if p.IsLowStock() {
			s.LowStock = append(s.LowStock, p)
		}
	}
	sort.Slice(s.LowStock, func(i, j int) bool {
		return s.LowStock[i].Stock.LessThan(s.LowStock[j].Stock)
	})

	for _, ps := range sales {
		s.TopProducts = append(s.TopProducts, *ps)
	}
	sort.Slice(s.TopProducts, func(i, j int) bool {
		if !s.TopProducts[i].Revenue.Equal(s.TopProducts[j].Revenue) {
			return s.TopProducts[i].Revenue.GreaterThan(s.TopProducts[j].Revenue)
		}
		return s.TopProducts[i].Name < s.TopProducts[j].Name
	})
	if len(s.TopProducts) > topProductLimit {
		s.TopProducts = s.TopProducts[:topProductLimit]
	}

	return s
}
