/*
filter.go - In-memory filtering and pagination of record sets

The list endpoints fetch full record sets and narrow them in memory: text
query matching, date ranges, low-stock flags, then a page window. Filters
never mutate their input slices.
*/
package invoicing

import (
	"sort"
	"strings"
	"time"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
)

// Page is a pagination window. Number is 1-based; Size <= 0 means no
// pagination (everything on one page).
type Page struct {
	Number int
	Size   int
}

// Paginate returns the requested page window and the total count before
// paging. An out-of-range page yields an empty slice.
func Paginate[T any](items []T, p Page) ([]T, int) {
	total := len(items)
	if p.Size <= 0 {
		return items, total
	}
	page := p.Number
	if page < 1 {
		page = 1
	}
	lo := (page - 1) * p.Size
	if lo >= total {
		return nil, total
	}
	hi := lo + p.Size
	if hi > total {
		hi = total
	}
	return items[lo:hi], total
}

func matches(haystack, query string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(query))
}

// =============================================================================
// CUSTOMER FILTER
// =============================================================================

type CustomerFilter struct {
	Query string // matches name or phone
	Page  Page
}

// FilterCustomers narrows and pages a customer set, newest first.
func FilterCustomers(customers []Customer, f CustomerFilter) ([]Customer, int) {
	out := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if f.Query != "" && !matches(c.Name, f.Query) && !matches(c.Phone, f.Query) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return Paginate(out, f.Page)
}

// =============================================================================
// PRODUCT FILTER
// =============================================================================

type ProductFilter struct {
	Query    string // matches name or barcode
	LowStock bool   // only products at/below their alert threshold
	Page     Page
}

// FilterProducts narrows and pages a product set, by name.
func FilterProducts(products []catalog.Product, f ProductFilter) ([]catalog.Product, int) {
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if f.Query != "" && !matches(p.Name, f.Query) && !matches(p.Barcode, f.Query) {
			continue
		}
		if f.LowStock && !p.IsLowStock() {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return Paginate(out, f.Page)
}

// =============================================================================
// INVOICE FILTER
// =============================================================================

type InvoiceFilter struct {
	CustomerID billing.CustomerID
	From, To   *time.Time // inclusive creation-date range
	Page       Page
}

// FilterInvoices narrows and pages an invoice set, newest first.
func FilterInvoices(invoices []Invoice, f InvoiceFilter) ([]Invoice, int) {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
			continue
		}
		if f.From != nil && inv.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && inv.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, inv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return Paginate(out, f.Page)
}
