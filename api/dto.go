/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AT THE EDGE:
  Clients speak JSON numbers, the engine speaks decimals. Incoming floats
  cross through billing.MoneyFromFloat (non-finite values collapse to
  zero); outgoing decimals are rendered as floats for display. Nothing
  inside the domain ever holds a float.

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the shared validator instance before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: MoneyFromFloat, decimal conventions
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/M7sN2/asilsys-server/analytics"
	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
	"github.com/M7sN2/asilsys-server/invoicing"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone,omitempty"`
	Address   string  `json:"address,omitempty"`
	Balance   float64 `json:"balance"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// CustomerRequest is the request to create or update a customer.
type CustomerRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// =============================================================================
// PRODUCTS
// =============================================================================

// ProductDTO represents a catalog product in API responses.
type ProductDTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Barcode          string  `json:"barcode,omitempty"`
	Unit             string  `json:"unit"`
	SubUnit          string  `json:"sub_unit,omitempty"`
	ConversionFactor float64 `json:"conversion_factor"`
	UnitPrice        float64 `json:"unit_price"`
	SubUnitPrice     float64 `json:"sub_unit_price,omitempty"`
	CostPrice        float64 `json:"cost_price,omitempty"`
	Stock            float64 `json:"stock"`
	MinStock         float64 `json:"min_stock,omitempty"`
	LowStock         bool    `json:"low_stock"`
	CreatedAt        string  `json:"created_at,omitempty"`
	UpdatedAt        string  `json:"updated_at,omitempty"`
}

// ProductRequest is the request to create or update a product.
type ProductRequest struct {
	Name             string  `json:"name" validate:"required"`
	Barcode          string  `json:"barcode"`
	Unit             string  `json:"unit" validate:"required"`
	SubUnit          string  `json:"sub_unit"`
	ConversionFactor float64 `json:"conversion_factor" validate:"gte=0"`
	UnitPrice        float64 `json:"unit_price" validate:"gte=0"`
	SubUnitPrice     float64 `json:"sub_unit_price" validate:"gte=0"`
	CostPrice        float64 `json:"cost_price" validate:"gte=0"`
	Stock            float64 `json:"stock"`
	MinStock         float64 `json:"min_stock" validate:"gte=0"`
}

// =============================================================================
// INVOICES
// =============================================================================

// LineItemDTO is one invoice line in responses.
type LineItemDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// TotalsDTO carries the frozen invoice totals.
type TotalsDTO struct {
	Subtotal   float64 `json:"subtotal"`
	TaxAmount  float64 `json:"tax_amount"`
	GrandTotal float64 `json:"grand_total"`
	Remaining  float64 `json:"remaining"`
}

// SnapshotDTO carries the frozen balance snapshot printed on the invoice.
type SnapshotDTO struct {
	OldBalance          float64 `json:"old_balance"`
	OldBalancePlusTotal float64 `json:"old_balance_plus_total"`
	NewBalance          float64 `json:"new_balance"`
}

// InvoiceDTO represents an invoice in API responses. Snapshot is null for
// legacy invoices in list responses; the detail endpoint fills it via the
// display fallback.
type InvoiceDTO struct {
	ID         string        `json:"id"`
	Number     int64         `json:"number"`
	CustomerID string        `json:"customer_id"`
	Items      []LineItemDTO `json:"items"`
	TaxRate    float64       `json:"tax_rate"`
	Shipping   float64       `json:"shipping,omitempty"`
	Discount   float64       `json:"discount,omitempty"`
	Paid       float64       `json:"paid"`
	Totals     TotalsDTO     `json:"totals"`
	Snapshot   *SnapshotDTO  `json:"snapshot,omitempty"`
	CreatedAt  string        `json:"created_at,omitempty"`
	UpdatedAt  string        `json:"updated_at,omitempty"`
}

// InvoiceLineRequest is one requested invoice line. UnitPrice null means
// "use the catalog price for that unit".
type InvoiceLineRequest struct {
	ProductID string   `json:"product_id" validate:"required"`
	Unit      string   `json:"unit" validate:"required"`
	Quantity  float64  `json:"quantity" validate:"gt=0"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

// InvoiceRequest is the request to create or update an invoice. On update
// the customer cannot be changed; customer_id is ignored there.
type InvoiceRequest struct {
	CustomerID string               `json:"customer_id" validate:"required"`
	Items      []InvoiceLineRequest `json:"items" validate:"required,min=1,dive"`
	TaxRate    float64              `json:"tax_rate" validate:"gte=0"`
	Shipping   float64              `json:"shipping"`
	Discount   float64              `json:"discount"`
	Paid       float64              `json:"paid"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

// ProductSalesDTO is one row of the top-products ranking.
type ProductSalesDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// DashboardDTO is the dashboard summary response.
type DashboardDTO struct {
	InvoiceCount int               `json:"invoice_count"`
	Revenue      float64           `json:"revenue"`
	Collected    float64           `json:"collected"`
	Outstanding  float64           `json:"outstanding"`
	CustomerDebt float64           `json:"customer_debt"`
	LowStock     []ProductDTO      `json:"low_stock"`
	TopProducts  []ProductSalesDTO `json:"top_products"`
}

// =============================================================================
// SHARED
// =============================================================================

// PagedResponse wraps list endpoints with the pre-paging total.
type PagedResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// StockErrorDetails is attached to insufficient-stock conflicts so the UI
// can offer the maximum quantity still addable.
type StockErrorDetails struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Unit      string  `json:"unit"`
	Available float64 `json:"available"`
	Requested float64 `json:"requested"`
	Addable   float64 `json:"addable"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toCustomerDTO(c invoicing.Customer) CustomerDTO {
	return CustomerDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   c.Address,
		Balance:   f(c.Balance),
		CreatedAt: ts(c.CreatedAt),
		UpdatedAt: ts(c.UpdatedAt),
	}
}

func toCustomerDTOs(customers []invoicing.Customer) []CustomerDTO {
	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	return dtos
}

func toProductDTO(p catalog.Product) ProductDTO {
	return ProductDTO{
		ID:               string(p.ID),
		Name:             p.Name,
		Barcode:          p.Barcode,
		Unit:             string(p.Unit),
		SubUnit:          string(p.SubUnit),
		ConversionFactor: f(p.ConversionFactor),
		UnitPrice:        f(p.UnitPrice),
		SubUnitPrice:     f(p.SubUnitPrice),
		CostPrice:        f(p.CostPrice),
		Stock:            f(p.Stock),
		MinStock:         f(p.MinStock),
		LowStock:         p.IsLowStock(),
		CreatedAt:        ts(p.CreatedAt),
		UpdatedAt:        ts(p.UpdatedAt),
	}
}

func toProductDTOs(products []catalog.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	return dtos
}

func toSnapshotDTO(s billing.BalanceSnapshot) *SnapshotDTO {
	return &SnapshotDTO{
		OldBalance:          f(s.OldBalance),
		OldBalancePlusTotal: f(s.OldBalancePlusTotal),
		NewBalance:          f(s.NewBalance),
	}
}

func toInvoiceDTO(inv invoicing.Invoice) InvoiceDTO {
	items := make([]LineItemDTO, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = LineItemDTO{
			ProductID: string(it.ProductID),
			Name:      it.Name,
			Unit:      string(it.Unit),
			Quantity:  f(it.Quantity),
			UnitPrice: f(it.UnitPrice),
			Total:     f(it.Total()),
		}
	}

	dto := InvoiceDTO{
		ID:         string(inv.ID),
		Number:     inv.Number,
		CustomerID: string(inv.CustomerID),
		Items:      items,
		TaxRate:    f(inv.TaxRatePercent),
		Shipping:   f(inv.Shipping),
		Discount:   f(inv.Discount),
		Paid:       f(inv.PaidAmount),
		Totals: TotalsDTO{
			Subtotal:   f(inv.Totals.Subtotal),
			TaxAmount:  f(inv.Totals.TaxAmount),
			GrandTotal: f(inv.Totals.GrandTotal),
			Remaining:  f(inv.Totals.Remaining),
		},
		CreatedAt: ts(inv.CreatedAt),
		UpdatedAt: ts(inv.UpdatedAt),
	}
	if inv.Snapshot != nil {
		dto.Snapshot = toSnapshotDTO(*inv.Snapshot)
	}
	return dto
}

func toInvoiceDTOs(invoices []invoicing.Invoice) []InvoiceDTO {
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	return dtos
}

func toDashboardDTO(s analytics.Summary) DashboardDTO {
	top := make([]ProductSalesDTO, len(s.TopProducts))
	for i, p := range s.TopProducts {
		top[i] = ProductSalesDTO{
			ProductID: string(p.ProductID),
			Name:      p.Name,
			Quantity:  f(p.Quantity),
			Revenue:   f(p.Revenue),
		}
	}
	return DashboardDTO{
		InvoiceCount: s.InvoiceCount,
		Revenue:      f(s.Revenue),
		Collected:    f(s.Collected),
		Outstanding:  f(s.Outstanding),
		CustomerDebt: f(s.CustomerDebt),
		LowStock:     toProductDTOs(s.LowStock),
		TopProducts:  top,
	}
}

func toInvoiceInput(req InvoiceRequest) invoicing.InvoiceInput {
	items := make([]invoicing.LineInput, len(req.Items))
	for i, l := range req.Items {
		item := invoicing.LineInput{
			ProductID: billing.ProductID(l.ProductID),
			Unit:      billing.Unit(l.Unit),
			Quantity:  billing.MoneyFromFloat(l.Quantity),
		}
		if l.UnitPrice != nil {
			price := billing.MoneyFromFloat(*l.UnitPrice)
			item.UnitPrice = &price
		}
		items[i] = item
	}
	return invoicing.InvoiceInput{
		CustomerID:     billing.CustomerID(req.CustomerID),
		Items:          items,
		TaxRatePercent: billing.MoneyFromFloat(req.TaxRate),
		Shipping:       billing.MoneyFromFloat(req.Shipping),
		Discount:       billing.MoneyFromFloat(req.Discount),
		PaidAmount:     billing.MoneyFromFloat(req.Paid),
	}
}
