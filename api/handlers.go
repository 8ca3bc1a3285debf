/*
handlers.go - HTTP API handlers for the retail invoicing system

PURPOSE:
  Exposes the invoicing engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Customers:
    GET    /api/customers               List customers (q, page, size)
    POST   /api/customers               Create customer
    GET    /api/customers/{id}          Get customer
    PUT    /api/customers/{id}          Update customer details
    DELETE /api/customers/{id}          Delete customer (no invoices only)
    GET    /api/customers/{id}/invoices Customer's invoice history

  Products:
    GET    /api/products                List products (q, low_stock, page, size)
    POST   /api/products                Create product
    GET    /api/products/{id}           Get product
    PUT    /api/products/{id}           Update product
    DELETE /api/products/{id}           Delete product

  Invoices:
    GET    /api/invoices                List invoices (customer_id, from, to, page, size)
    POST   /api/invoices                Create invoice
    GET    /api/invoices/{id}           Get invoice (snapshot always filled)
    PUT    /api/invoices/{id}           Edit invoice
    DELETE /api/invoices/{id}           Delete invoice (reverses balance and stock)
    GET    /api/invoices/{id}/pdf       Printable PDF

  Dashboard:
    GET    /api/dashboard               Sales summary (from, to)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (go-playground/validator)
  3. Call domain logic (invoicing service, filters, analytics)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, empty invoices, bad units
  - 404: Customer/product/invoice not found
  - 409: Insufficient stock (payload carries the max addable quantity),
         customer still referenced by invoices
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. The server binds to localhost and serves
  a single-station desktop frontend.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - invoicing/service.go: The logic behind the invoice endpoints
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/M7sN2/asilsys-server/analytics"
	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
	"github.com/M7sN2/asilsys-server/invoicing"
	"github.com/M7sN2/asilsys-server/printing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   invoicing.TxStore
	Service *invoicing.Service
	Print   printing.Options

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a new handler over the given store.
func NewHandler(store invoicing.TxStore, print printing.Options) *Handler {
	return &Handler{
		Store:    store,
		Service:  invoicing.NewService(store),
		Print:    print,
		validate: validator.New(),
		now:      time.Now,
	}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns customers matching the query, newest first.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	filtered, total := invoicing.FilterCustomers(customers, invoicing.CustomerFilter{
		Query: r.URL.Query().Get("q"),
		Page:  parsePage(r),
	})
	writeJSON(w, http.StatusOK, PagedResponse{Items: toCustomerDTOs(filtered), Total: total})
}

// GetCustomer returns a single customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))

	cust, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get customer", err)
		return
	}
	if cust == nil {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*cust))
}

// CreateCustomer creates a new customer with a zero opening balance.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[CustomerRequest](h, w, r)
	if !ok {
		return
	}

	now := h.now()
	cust := invoicing.Customer{
		ID:        billing.CustomerID(uuid.NewString()),
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   req.Address,
		Balance:   billing.MoneyFromFloat(0),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.SaveCustomer(r.Context(), cust); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(cust))
}

// UpdateCustomer updates contact details. The balance is not editable here:
// it only moves through invoice saves and deletes.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))
	req, ok := decodeValid[CustomerRequest](h, w, r)
	if !ok {
		return
	}

	cust, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get customer", err)
		return
	}
	if cust == nil {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}

	cust.Name = req.Name
	cust.Phone = req.Phone
	cust.Address = req.Address
	cust.UpdatedAt = h.now()
	if err := h.Store.SaveCustomer(r.Context(), *cust); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*cust))
}

// DeleteCustomer removes a customer that has no invoices.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))
	ctx := r.Context()

	cust, err := h.Store.GetCustomer(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get customer", err)
		return
	}
	if cust == nil {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}

	invoices, err := h.Store.ListInvoicesByCustomer(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check invoices", err)
		return
	}
	if len(invoices) > 0 {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: fmt.Sprintf("Customer has %d invoices; delete them first", len(invoices)),
			Code:  "customer_has_invoices",
		})
		return
	}

	if err := h.Store.DeleteCustomer(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCustomerInvoices returns a customer's invoice history, newest first.
func (h *Handler) ListCustomerInvoices(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))
	ctx := r.Context()

	cust, err := h.Store.GetCustomer(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get customer", err)
		return
	}
	if cust == nil {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}

	invoices, err := h.Store.ListInvoicesByCustomer(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	filtered, total := invoicing.FilterInvoices(invoices, invoicing.InvoiceFilter{Page: parsePage(r)})
	writeJSON(w, http.StatusOK, PagedResponse{Items: toInvoiceDTOs(filtered), Total: total})
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns products matching the query, by name.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	filtered, total := invoicing.FilterProducts(products, invoicing.ProductFilter{
		Query:    r.URL.Query().Get("q"),
		LowStock: r.URL.Query().Get("low_stock") == "true",
		Page:     parsePage(r),
	})
	writeJSON(w, http.StatusOK, PagedResponse{Items: toProductDTOs(filtered), Total: total})
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := billing.ProductID(chi.URLParam(r, "id"))

	p, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// CreateProduct creates a new catalog product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[ProductRequest](h, w, r)
	if !ok {
		return
	}

	now := h.now()
	p := productFromRequest(req)
	p.ID = billing.ProductID(uuid.NewString())
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// UpdateProduct updates an existing product, stock included.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := billing.ProductID(chi.URLParam(r, "id"))
	req, ok := decodeValid[ProductRequest](h, w, r)
	if !ok {
		return
	}

	existing, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}

	p := productFromRequest(req)
	p.ID = id
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = h.now()

	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// DeleteProduct removes a product. Existing invoices keep the name and
// price written on their lines.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := billing.ProductID(chi.URLParam(r, "id"))

	p, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}

	if err := h.Store.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productFromRequest(req ProductRequest) catalog.Product {
	conversion := billing.MoneyFromFloat(req.ConversionFactor)
	if conversion.IsZero() {
		conversion = billing.MoneyFromFloat(1)
	}
	return catalog.Product{
		Name:             req.Name,
		Barcode:          req.Barcode,
		Unit:             billing.Unit(req.Unit),
		SubUnit:          billing.Unit(req.SubUnit),
		ConversionFactor: conversion,
		UnitPrice:        billing.MoneyFromFloat(req.UnitPrice),
		SubUnitPrice:     billing.MoneyFromFloat(req.SubUnitPrice),
		CostPrice:        billing.MoneyFromFloat(req.CostPrice),
		Stock:            billing.MoneyFromFloat(req.Stock),
		MinStock:         billing.MoneyFromFloat(req.MinStock),
	}
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns invoices matching the filter, newest first.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Store.ListInvoices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	from, err := parseDate(r.URL.Query().Get("from"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	filtered, total := invoicing.FilterInvoices(invoices, invoicing.InvoiceFilter{
		CustomerID: billing.CustomerID(r.URL.Query().Get("customer_id")),
		From:       from,
		To:         to,
		Page:       parsePage(r),
	})
	writeJSON(w, http.StatusOK, PagedResponse{Items: toInvoiceDTOs(filtered), Total: total})
}

// GetInvoice returns a single invoice. The snapshot field is always
// populated: stored snapshot when present, display fallback for legacy rows.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))
	ctx := r.Context()

	inv, err := h.Service.GetInvoice(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := toInvoiceDTO(*inv)
	if dto.Snapshot == nil {
		if cust, err := h.Store.GetCustomer(ctx, inv.CustomerID); err == nil && cust != nil {
			dto.Snapshot = toSnapshotDTO(inv.DisplaySnapshot(cust.Balance))
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateInvoice saves a new invoice.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[InvoiceRequest](h, w, r)
	if !ok {
		return
	}

	inv, err := h.Service.CreateInvoice(r.Context(), toInvoiceInput(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(*inv))
}

// UpdateInvoice edits an existing invoice in place.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))
	req, ok := decodeValid[InvoiceRequest](h, w, r)
	if !ok {
		return
	}

	inv, err := h.Service.UpdateInvoice(r.Context(), id, toInvoiceInput(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// DeleteInvoice removes an invoice, reversing its balance and stock effects.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteInvoice(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PrintInvoice streams the invoice as a PDF.
func (h *Handler) PrintInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))
	ctx := r.Context()

	inv, err := h.Service.GetInvoice(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	cust, err := h.Service.GetCustomer(ctx, inv.CustomerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`inline; filename="invoice-%d.pdf"`, inv.Number))
	if err := printing.RenderInvoice(w, *inv, *cust, h.Print); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns the sales summary for the requested period.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, err := parseDate(r.URL.Query().Get("from"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	invoices, err := h.Store.ListInvoices(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}
	products, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}
	customers, err := h.Store.ListCustomers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	summary := analytics.Summarize(invoices, products, customers, from, to)
	writeJSON(w, http.StatusOK, toDashboardDTO(summary))
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeValid decodes the JSON body into T and runs struct validation.
// On failure it writes the error response and returns ok=false.
func decodeValid[T any](h *Handler, w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return req, false
	}
	return req, true
}

// writeDomainError maps billing/invoicing errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *billing.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: stockErr.Error(),
			Code:  "insufficient_stock",
			Details: StockErrorDetails{
				ProductID: string(stockErr.ProductID),
				Name:      stockErr.Name,
				Unit:      string(stockErr.Unit),
				Available: f(stockErr.Available),
				Requested: f(stockErr.Requested),
				Addable:   f(stockErr.Addable),
			},
		})
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func parsePage(r *http.Request) invoicing.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return invoicing.Page{Number: page, Size: size}
}

// parseDate parses a YYYY-MM-DD query value. endOfDay pushes the bound to
// the last instant of that day so "to" ranges are inclusive.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
