/*
handlers_test.go - End-to-end tests for the API handlers

Requests go through the real router into the real SQLite store (:memory:),
so these cover routing, validation, the invoicing service, and persistence
together.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M7sN2/asilsys-server/printing"
	"github.com/M7sN2/asilsys-server/store/sqlite"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := NewHandler(st, printing.Options{CompanyName: "Test Market", Currency: "SAR"})
	return NewRouter(h)
}

// doJSON performs a request with a JSON body and decodes the JSON response
// into out (when out is non-nil).
func doJSON(t *testing.T, r http.Handler, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

func seedCustomer(t *testing.T, r http.Handler, name string) CustomerDTO {
	t.Helper()
	var dto CustomerDTO
	rec := doJSON(t, r, "POST", "/api/customers", CustomerRequest{Name: name, Phone: "0501112222"}, &dto)
	require.Equal(t, http.StatusCreated, rec.Code)
	return dto
}

func seedProduct(t *testing.T, r http.Handler, name string, price, stock float64) ProductDTO {
	t.Helper()
	var dto ProductDTO
	rec := doJSON(t, r, "POST", "/api/products", ProductRequest{
		Name: name, Unit: "piece", UnitPrice: price, Stock: stock, MinStock: 2,
	}, &dto)
	require.Equal(t, http.StatusCreated, rec.Code)
	return dto
}

func invoiceBody(customerID, productID string, qty, paid float64) InvoiceRequest {
	return InvoiceRequest{
		CustomerID: customerID,
		Items: []InvoiceLineRequest{
			{ProductID: productID, Unit: "piece", Quantity: qty},
		},
		TaxRate: 15,
		Paid:    paid,
	}
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func TestCustomerCRUD(t *testing.T) {
	r := newTestRouter(t)

	// GIVEN a created customer
	created := seedCustomer(t, r, "Ahmed")
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 0.0, created.Balance)

	// WHEN listing with a matching query
	var list PagedResponse
	rec := doJSON(t, r, "GET", "/api/customers?q=ahm", nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, list.Total)

	// AND updating contact details
	var updated CustomerDTO
	rec = doJSON(t, r, "PUT", "/api/customers/"+created.ID,
		CustomerRequest{Name: "Ahmed Ali", Phone: "0509998888"}, &updated)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ahmed Ali", updated.Name)

	// THEN delete works and the customer is gone
	rec = doJSON(t, r, "DELETE", "/api/customers/"+created.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, r, "GET", "/api/customers/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCustomerValidation(t *testing.T) {
	r := newTestRouter(t)

	// Missing name fails validation.
	rec := doJSON(t, r, "POST", "/api/customers", CustomerRequest{Phone: "0501"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCustomerWithInvoices(t *testing.T) {
	r := newTestRouter(t)
	cust := seedCustomer(t, r, "Ahmed")
	prod := seedProduct(t, r, "Water", 10, 100)

	rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody(cust.ID, prod.ID, 1, 0), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Customer with invoices cannot be deleted.
	rec = doJSON(t, r, "DELETE", "/api/customers/"+cust.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// INVOICES
// =============================================================================

func TestCreateInvoiceFlow(t *testing.T) {
	r := newTestRouter(t)
	cust := seedCustomer(t, r, "Ahmed")
	prod := seedProduct(t, r, "Water", 10, 20)

	// WHEN creating an invoice: 5 pieces at 10, 15% tax, 30 paid
	var inv InvoiceDTO
	rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody(cust.ID, prod.ID, 5, 30), &inv)
	require.Equal(t, http.StatusCreated, rec.Code)

	// THEN totals follow the engine: 50 + 7.50 tax, 27.50 remaining
	assert.Equal(t, int64(1), inv.Number)
	assert.Equal(t, 50.0, inv.Totals.Subtotal)
	assert.Equal(t, 7.5, inv.Totals.TaxAmount)
	assert.Equal(t, 57.5, inv.Totals.GrandTotal)
	assert.Equal(t, 27.5, inv.Totals.Remaining)

	// AND the snapshot is frozen at save time
	require.NotNil(t, inv.Snapshot)
	assert.Equal(t, 0.0, inv.Snapshot.OldBalance)
	assert.Equal(t, 57.5, inv.Snapshot.OldBalancePlusTotal)
	assert.Equal(t, 27.5, inv.Snapshot.NewBalance)

	// AND stock and balance moved
	var p ProductDTO
	doJSON(t, r, "GET", "/api/products/"+prod.ID, nil, &p)
	assert.Equal(t, 15.0, p.Stock)

	var c CustomerDTO
	doJSON(t, r, "GET", "/api/customers/"+cust.ID, nil, &c)
	assert.Equal(t, 27.5, c.Balance)
}

func TestCreateInvoiceInsufficientStock(t *testing.T) {
	r := newTestRouter(t)
	cust := seedCustomer(t, r, "Ahmed")
	prod := seedProduct(t, r, "Water", 10, 4)

	// WHEN requesting more than available
	rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody(cust.ID, prod.ID, 6, 0), nil)

	// THEN 409 with the max addable quantity in the payload
	require.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "insufficient_stock", resp.Code)

	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4.0, details["available"])
	assert.Equal(t, 4.0, details["addable"])

	// AND nothing was applied
	var p ProductDTO
	doJSON(t, r, "GET", "/api/products/"+prod.ID, nil, &p)
	assert.Equal(t, 4.0, p.Stock)
}

func TestCreateInvoiceUnknownCustomer(t *testing.T) {
	r := newTestRouter(t)
	prod := seedProduct(t, r, "Water", 10, 4)

	rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody("no-such", prod.ID, 1, 0), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateInvoiceRewritesSnapshot(t *testing.T) {
	r := newTestRouter(t)
	cust := seedCustomer(t, r, "Ahmed")
	prod := seedProduct(t, r, "Water", 10, 50)

	var inv InvoiceDTO
	rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody(cust.ID, prod.ID, 5, 30), &inv)
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN editing to 10 pieces, 60 paid
	var edited InvoiceDTO
	rec = doJSON(t, r, "PUT", "/api/invoices/"+inv.ID, invoiceBody(cust.ID, prod.ID, 10, 60), &edited)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN the number is kept and the snapshot follows the edit rule:
	// old = current balance 27.5 + previous remaining 27.5 = 55
	assert.Equal(t, inv.Number, edited.Number)
	require.NotNil(t, edited.Snapshot)
	assert.Equal(t, 55.0, edited.Snapshot.OldBalance)
	assert.Equal(t, 170.0, edited.Snapshot.OldBalancePlusTotal)
	assert.Equal(t, 110.0, edited.Snapshot.NewBalance)

	// AND the live balance moved by the delta
	var c CustomerDTO
	doJSON(t, r, "GET", "/api/customers/"+cust.ID, nil, &c)
	assert.Equal(t, 55.0, c.Balance)
}

func TestDeleteInvoiceReversesEffects(t *testing.T) {
	r := newTestRouter(t)
	cust := seedCustomer(t, r, "Ahmed")
	prod := seedProduct(t, r, "Water", 10, 20)

	var inv InvoiceDTO
	rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody(cust.ID, prod.ID, 5, 30), &inv)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, "DELETE", "/api/invoices/"+inv.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var c CustomerDTO
	doJSON(t, r, "GET", "/api/customers/"+cust.ID, nil, &c)
	assert.Equal(t, 0.0, c.Balance)

	var p ProductDTO
	doJSON(t, r, "GET", "/api/products/"+prod.ID, nil, &p)
	assert.Equal(t, 20.0, p.Stock)

	rec = doJSON(t, r, "GET", "/api/invoices/"+inv.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListInvoicesFilterByCustomer(t *testing.T) {
	r := newTestRouter(t)
	custA := seedCustomer(t, r, "Ahmed")
	custB := seedCustomer(t, r, "Sara")
	prod := seedProduct(t, r, "Water", 10, 100)

	for i, id := range []string{custA.ID, custB.ID, custA.ID} {
		rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody(id, prod.ID, 1, 0), nil)
		require.Equal(t, http.StatusCreated, rec.Code, "invoice %d", i)
	}

	var list PagedResponse
	rec := doJSON(t, r, "GET", "/api/invoices?customer_id="+custA.ID, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, list.Total)
}

func TestPrintInvoicePDF(t *testing.T) {
	r := newTestRouter(t)
	cust := seedCustomer(t, r, "Ahmed")
	prod := seedProduct(t, r, "Water", 10, 20)

	var inv InvoiceDTO
	rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody(cust.ID, prod.ID, 2, 0), &inv)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/invoices/%s/pdf", inv.ID), nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)

	require.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "application/pdf", out.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(out.Body.Bytes(), []byte("%PDF")))
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard(t *testing.T) {
	r := newTestRouter(t)
	cust := seedCustomer(t, r, "Ahmed")
	prod := seedProduct(t, r, "Water", 10, 20)

	rec := doJSON(t, r, "POST", "/api/invoices", invoiceBody(cust.ID, prod.ID, 5, 30), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var dash DashboardDTO
	rec = doJSON(t, r, "GET", "/api/dashboard", nil, &dash)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, dash.InvoiceCount)
	assert.Equal(t, 57.5, dash.Revenue)
	assert.Equal(t, 30.0, dash.Collected)
	assert.Equal(t, 27.5, dash.Outstanding)
	assert.Equal(t, 27.5, dash.CustomerDebt)
	require.Len(t, dash.TopProducts, 1)
	assert.Equal(t, "Water", dash.TopProducts[0].Name)
}
