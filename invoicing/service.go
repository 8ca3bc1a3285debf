/*
service.go - Invoice lifecycle orchestration

PURPOSE:
  The only code path that saves, edits, or deletes invoices. Each operation
  runs inside one store transaction and performs the full read-compute-write
  sequence:

    1. Read customer, products, and (for edits/deletes) the prior invoice
    2. Compose the draft through billing.AddLineItem (merge + stock guard)
    3. billing.ComputeTotals / billing.ComputeSnapshot
    4. Move product stock by the sold base quantities
    5. billing.ApplyBalanceDelta - exactly once - and write everything back

STOCK MOVEMENTS:
  Editing first restores the prior invoice's quantities, then applies the
  new ones; the stock ceiling an edit is checked against is therefore stock
  as if the invoice had never existed. Deleting restores quantities.

CONCURRENCY:
  One save in flight per customer. The transaction serializes against the
  store; there is no optimistic-concurrency check on the balance itself.

SEE ALSO:
  - billing/snapshot.go: The snapshot reconstruction rule edits rely on
  - filter.go: Listing with filters and pagination
*/
package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
)

// Service orchestrates invoice saves around the billing engine.
type Service struct {
	store TxStore
	now   func() time.Time
}

// NewService creates a service over the given transactional store.
func NewService(store TxStore) *Service {
	return &Service{store: store, now: time.Now}
}

// LineInput is one requested invoice line. UnitPrice nil means "use the
// catalog price for that unit"; the cashier can override it.
type LineInput struct {
	ProductID billing.ProductID
	Unit      billing.Unit
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
}

// InvoiceInput carries everything needed to save an invoice.
type InvoiceInput struct {
	CustomerID     billing.CustomerID
	Items          []LineInput
	TaxRatePercent decimal.Decimal
	Shipping       decimal.Decimal
	Discount       decimal.Decimal
	PaidAmount     decimal.Decimal
}

// =============================================================================
// CREATE
// =============================================================================

// CreateInvoice saves a new invoice: composes the draft, freezes a balance
// snapshot against the customer's current balance, decrements stock, and
// applies the balance delta with no prior remaining.
func (s *Service) CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error) {
	var saved *Invoice

	err := s.store.WithTx(ctx, func(st Store) error {
		cust, err := getCustomer(ctx, st, in.CustomerID)
		if err != nil {
			return err
		}

		products, err := loadProducts(ctx, st, in.Items, nil)
		if err != nil {
			return err
		}

		draft, err := composeDraft(in, products)
		if err != nil {
			return err
		}

		totals := billing.ComputeTotals(draft)
		snap := billing.ComputeSnapshot(cust.Balance, totals, nil)

		if err := moveStock(ctx, st, products, draft.Items, s.now()); err != nil {
			return err
		}

		number, err := st.NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		inv := Invoice{
			ID:             billing.InvoiceID(uuid.NewString()),
			Number:         number,
			CustomerID:     cust.ID,
			Items:          draft.Items,
			TaxRatePercent: draft.TaxRatePercent,
			Shipping:       draft.Shipping,
			Discount:       draft.Discount,
			PaidAmount:     draft.PaidAmount,
			Totals:         totals,
			Snapshot:       &snap,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := st.SaveInvoice(ctx, inv); err != nil {
			return err
		}

		cust.Balance = billing.ApplyBalanceDelta(cust.Balance, totals.Remaining, nil)
		cust.UpdatedAt = now
		if err := st.SaveCustomer(ctx, *cust); err != nil {
			return err
		}

		saved = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateInvoice re-saves an existing invoice. The customer on the invoice
// does not change; in.CustomerID is ignored. The prior line quantities are
// restored before the new draft is checked against stock, and the balance
// delta subtracts the previously stored remaining before adding the new one.
func (s *Service) UpdateInvoice(ctx context.Context, id billing.InvoiceID, in InvoiceInput) (*Invoice, error) {
	var saved *Invoice

	err := s.store.WithTx(ctx, func(st Store) error {
		prev, err := getInvoice(ctx, st, id)
		if err != nil {
			return err
		}
		cust, err := getCustomer(ctx, st, prev.CustomerID)
		if err != nil {
			return err
		}

		products, err := loadProducts(ctx, st, in.Items, prev.Items)
		if err != nil {
			return err
		}
		if err := restoreStock(products, prev.Items); err != nil {
			return err
		}

		draft, err := composeDraft(in, products)
		if err != nil {
			return err
		}

		totals := billing.ComputeTotals(draft)
		prevRemaining := prev.Totals.Remaining
		snap := billing.ComputeSnapshot(cust.Balance, totals, &prevRemaining)

		if err := moveStock(ctx, st, products, draft.Items, s.now()); err != nil {
			return err
		}

		now := s.now()
		inv := *prev
		inv.Items = draft.Items
		inv.TaxRatePercent = draft.TaxRatePercent
		inv.Shipping = draft.Shipping
		inv.Discount = draft.Discount
		inv.PaidAmount = draft.PaidAmount
		inv.Totals = totals
		inv.Snapshot = &snap
		inv.UpdatedAt = now
		if err := st.SaveInvoice(ctx, inv); err != nil {
			return err
		}

		cust.Balance = billing.ApplyBalanceDelta(cust.Balance, totals.Remaining, &prevRemaining)
		cust.UpdatedAt = now
		if err := st.SaveCustomer(ctx, *cust); err != nil {
			return err
		}

		saved = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteInvoice removes an invoice, restores the sold stock, and subtracts
// the invoice's remaining from the customer balance (a delta with a new
// remaining of zero).
func (s *Service) DeleteInvoice(ctx context.Context, id billing.InvoiceID) error {
	return s.store.WithTx(ctx, func(st Store) error {
		prev, err := getInvoice(ctx, st, id)
		if err != nil {
			return err
		}
		cust, err := getCustomer(ctx, st, prev.CustomerID)
		if err != nil {
			return err
		}

		products, err := loadProducts(ctx, st, nil, prev.Items)
		if err != nil {
			return err
		}
		if err := restoreStock(products, prev.Items); err != nil {
			return err
		}

		now := s.now()
		for _, p := range products {
			p.UpdatedAt = now
			if err := st.SaveProduct(ctx, *p); err != nil {
				return err
			}
		}

		prevRemaining := prev.Totals.Remaining
		cust.Balance = billing.ApplyBalanceDelta(cust.Balance, decimal.Zero, &prevRemaining)
		cust.UpdatedAt = now
		if err := st.SaveCustomer(ctx, *cust); err != nil {
			return err
		}

		return st.DeleteInvoice(ctx, id)
	})
}

// =============================================================================
// READS
// =============================================================================

// GetInvoice returns an invoice or billing.ErrInvoiceNotFound.
func (s *Service) GetInvoice(ctx context.Context, id billing.InvoiceID) (*Invoice, error) {
	return getInvoice(ctx, s.store, id)
}

// GetCustomer returns a customer or billing.ErrCustomerNotFound.
func (s *Service) GetCustomer(ctx context.Context, id billing.CustomerID) (*Customer, error) {
	return getCustomer(ctx, s.store, id)
}

// =============================================================================
// DRAFT COMPOSITION
// =============================================================================

func composeDraft(in InvoiceInput, products map[billing.ProductID]*catalog.Product) (billing.InvoiceDraft, error) {
	if len(in.Items) == 0 {
		return billing.InvoiceDraft{}, billing.ErrEmptyInvoice
	}

	stock := stockSet(products)
	draft := billing.InvoiceDraft{
		TaxRatePercent: in.TaxRatePercent,
		Shipping:       in.Shipping,
		Discount:       in.Discount,
		PaidAmount:     in.PaidAmount,
	}

	for _, line := range in.Items {
		if !line.Quantity.IsPositive() {
			return billing.InvoiceDraft{}, fmt.Errorf("%w: product %s", billing.ErrInvalidQuantity, line.ProductID)
		}

		p := products[line.ProductID]
		price := line.UnitPrice
		if price == nil {
			catalogPrice, err := p.PriceFor(line.Unit)
			if err != nil {
				return billing.InvoiceDraft{}, fmt.Errorf("product %s: %w", p.ID, err)
			}
			price = &catalogPrice
		}

		var err error
		draft, err = billing.AddLineItem(draft, stock, billing.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Unit:      line.Unit,
			Quantity:  line.Quantity,
			UnitPrice: *price,
		})
		if err != nil {
			return billing.InvoiceDraft{}, err
		}
	}
	return draft, nil
}

func stockSet(products map[billing.ProductID]*catalog.Product) catalog.StockSet {
	list := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		list = append(list, *p)
	}
	return catalog.NewStockSet(list)
}

// =============================================================================
// STOCK MOVEMENTS
// =============================================================================

// restoreStock adds a prior invoice's quantities back onto the in-memory
// product copies, so the subsequent stock-ceiling check and deduction see
// stock as if that invoice never existed.
func restoreStock(products map[billing.ProductID]*catalog.Product, prior []billing.LineItem) error {
	for _, li := range prior {
		p, ok := products[li.ProductID]
		if !ok {
			// Product removed from the catalog since the invoice was
			// saved; nothing to restore onto.
			continue
		}
		base, err := p.BaseQuantity(li.Quantity, li.Unit)
		if err != nil {
			return fmt.Errorf("product %s: %w", p.ID, err)
		}
		p.Stock = p.Stock.Add(base)
	}
	return nil
}

// moveStock deducts the sold quantities (in base units) and persists the
// touched products.
func moveStock(ctx context.Context, st Store, products map[billing.ProductID]*catalog.Product, items []billing.LineItem, now time.Time) error {
	for _, li := range items {
		p := products[li.ProductID]
		base, err := p.BaseQuantity(li.Quantity, li.Unit)
		if err != nil {
			return fmt.Errorf("product %s: %w", p.ID, err)
		}
		p.Stock = p.Stock.Sub(base)
	}
	for _, p := range products {
		p.UpdatedAt = now
		if err := st.SaveProduct(ctx, *p); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LOOKUP HELPERS
// =============================================================================

// loadProducts fetches every product referenced by the new line inputs
// (required) and by the prior invoice's items (lenient: a product deleted
// from the catalog since the invoice was saved is simply absent from the
// map, and its stock cannot be restored).
func loadProducts(ctx context.Context, st Store, inputs []LineInput, prior []billing.LineItem) (map[billing.ProductID]*catalog.Product, error) {
	products := make(map[billing.ProductID]*catalog.Product)

	for _, line := range inputs {
		if _, ok := products[line.ProductID]; ok {
			continue
		}
		p, err := st.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: %s", billing.ErrProductNotFound, line.ProductID)
		}
		products[line.ProductID] = p
	}

	for _, li := range prior {
		if _, ok := products[li.ProductID]; ok {
			continue
		}
		p, err := st.GetProduct(ctx, li.ProductID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			products[li.ProductID] = p
		}
	}

	return products, nil
}

func getCustomer(ctx context.Context, st Store, id billing.CustomerID) (*Customer, error) {
	c, err := st.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", billing.ErrCustomerNotFound, id)
	}
	return c, nil
}

func getInvoice(ctx context.Context, st Store, id billing.InvoiceID) (*Invoice, error) {
	inv, err := st.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: %s", billing.ErrInvoiceNotFound, id)
	}
	return inv, nil
}
