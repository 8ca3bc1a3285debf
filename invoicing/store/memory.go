// Package store provides an in-memory invoicing.Store for tests and dev.
package store

import (
	"context"
	"sync"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
	"github.com/M7sN2/asilsys-server/invoicing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	customers  map[billing.CustomerID]invoicing.Customer
	products   map[billing.ProductID]catalog.Product
	invoices   map[billing.InvoiceID]invoicing.Invoice
	nextNumber int64
}

func NewMemory() *Memory {
	return &Memory{
		customers: make(map[billing.CustomerID]invoicing.Customer),
		products:  make(map[billing.ProductID]catalog.Product),
		invoices:  make(map[billing.InvoiceID]invoicing.Invoice),
	}
}

// WithTx runs fn against the store directly. The memory store has no
// rollback; it relies on the single-writer assumption the service documents.
func (m *Memory) WithTx(_ context.Context, fn func(invoicing.Store) error) error {
	return fn(m)
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (m *Memory) SaveCustomer(_ context.Context, c invoicing.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) GetCustomer(_ context.Context, id billing.CustomerID) (*invoicing.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCustomers(_ context.Context) ([]invoicing.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]invoicing.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) DeleteCustomer(_ context.Context, id billing.CustomerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.customers, id)
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (m *Memory) SaveProduct(_ context.Context, p catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *Memory) GetProduct(_ context.Context, id billing.ProductID) (*catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) DeleteProduct(_ context.Context, id billing.ProductID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (m *Memory) SaveInvoice(_ context.Context, inv invoicing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Deep-copy the items so later draft edits can't reach stored state.
	items := make([]billing.LineItem, len(inv.Items))
	copy(items, inv.Items)
	inv.Items = items
	if inv.Snapshot != nil {
		snap := *inv.Snapshot
		inv.Snapshot = &snap
	}

	m.invoices[inv.ID] = inv
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id billing.InvoiceID) (*invoicing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	items := make([]billing.LineItem, len(inv.Items))
	copy(items, inv.Items)
	inv.Items = items
	if inv.Snapshot != nil {
		snap := *inv.Snapshot
		inv.Snapshot = &snap
	}
	return &inv, nil
}

func (m *Memory) ListInvoices(_ context.Context) ([]invoicing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]invoicing.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (m *Memory) ListInvoicesByCustomer(_ context.Context, id billing.CustomerID) ([]invoicing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []invoicing.Invoice
	for _, inv := range m.invoices {
		if inv.CustomerID == id {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *Memory) DeleteInvoice(_ context.Context, id billing.InvoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invoices, id)
	return nil
}

func (m *Memory) NextInvoiceNumber(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNumber++
	return m.nextNumber, nil
}
