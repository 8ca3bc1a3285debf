/*
store.go - Persistence contracts for customers, products, and invoices

PURPOSE:
  Defines the interface between the invoicing service and the database.
  Implementations: store/sqlite (production), invoicing/store (in-memory,
  tests and dev).

TRANSACTIONS:
  Every save/edit/delete runs a read-compute-write sequence against the
  customer balance and product stock. TxStore.WithTx serializes the whole
  sequence so a crash mid-way cannot leave the balance and the invoice
  disagreeing. One save in flight per customer is assumed; there is no
  optimistic-concurrency check on the balance.
*/
package invoicing

import (
	"context"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
)

// Store handles persistence of all record types.
type Store interface {
	// Customers
	SaveCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, id billing.CustomerID) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	DeleteCustomer(ctx context.Context, id billing.CustomerID) error

	// Products
	SaveProduct(ctx context.Context, p catalog.Product) error
	GetProduct(ctx context.Context, id billing.ProductID) (*catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	DeleteProduct(ctx context.Context, id billing.ProductID) error

	// Invoices
	SaveInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id billing.InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
	ListInvoicesByCustomer(ctx context.Context, id billing.CustomerID) ([]Invoice, error)
	DeleteInvoice(ctx context.Context, id billing.InvoiceID) error

	// NextInvoiceNumber returns the next sequential invoice number.
	NextInvoiceNumber(ctx context.Context) (int64, error)
}

// TxStore wraps Store with transaction support. If fn returns an error the
// transaction is rolled back, otherwise committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
