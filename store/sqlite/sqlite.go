/*
Package sqlite provides the SQLite-backed implementation of invoicing.TxStore.

PURPOSE:
  Local single-file persistence for the retail application: customers,
  products, and invoices with their frozen balance snapshots.

KEY TABLES:
  customers: Buyers with their live running balance
  products:  Catalog entries with two-level units and stock on hand
  invoices:  Saved invoices; line items as JSON, totals and the balance
             snapshot as dedicated columns

SNAPSHOT COLUMNS:
  old_balance, old_balance_plus_total, and new_balance are nullable: rows
  written before snapshot recording existed carry NULLs there, which maps
  to Invoice.Snapshot == nil and the display fallback in invoicing. A saved
  snapshot is only overwritten by an edit's freshly computed snapshot,
  never recomputed from later customer state.

DECIMALS:
  All money and quantity columns are TEXT holding decimal strings, so
  nothing is lost round-tripping through storage.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/asilsys.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := invoicing.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - invoicing/store.go: Interface definitions
  - invoicing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/catalog"
	"github.com/M7sN2/asilsys-server/invoicing"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session implements invoicing.Store over either the raw database or an
// open transaction.
type session struct {
	db dbtx
}

// Store is the production invoicing.TxStore.
type Store struct {
	session
	sqlDB *sql.DB

	// Serializes WithTx: SQLite has a single writer, and the invoicing
	// service's read-compute-write sequences must not interleave.
	txMu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{session: session{db: db}, sqlDB: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Backup writes a consistent copy of the database to destPath using
// VACUUM INTO. Safe to run while the store is in use; it takes the
// transaction lock so no save is in flight mid-copy.
func (s *Store) Backup(ctx context.Context, destPath string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	_, err := s.sqlDB.ExecContext(ctx, "VACUUM INTO ?", destPath)
	return err
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		address TEXT,
		balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		barcode TEXT,
		unit TEXT NOT NULL,
		sub_unit TEXT,
		conversion_factor TEXT NOT NULL DEFAULT '1',
		unit_price TEXT NOT NULL DEFAULT '0',
		sub_unit_price TEXT NOT NULL DEFAULT '0',
		cost_price TEXT NOT NULL DEFAULT '0',
		stock TEXT NOT NULL DEFAULT '0',
		min_stock TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
	CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		items_json TEXT NOT NULL,
		tax_rate TEXT NOT NULL DEFAULT '0',
		shipping TEXT NOT NULL DEFAULT '0',
		discount TEXT NOT NULL DEFAULT '0',
		paid TEXT NOT NULL DEFAULT '0',
		subtotal TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		grand_total TEXT NOT NULL,
		remaining TEXT NOT NULL,

		-- Frozen balance snapshot. NULL on rows that predate snapshot
		-- recording.
		old_balance TEXT,
		old_balance_plus_total TEXT,
		new_balance TEXT,

		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices(customer_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_created_at ON invoices(created_at);
	`

	_, err := s.sqlDB.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. The transaction is
// rolled back if fn returns an error, committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(invoicing.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&session{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (s *session) SaveCustomer(ctx context.Context, c invoicing.Customer) error {
	query := `
		INSERT INTO customers (id, name, phone, address, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			address = excluded.address,
			balance = excluded.balance,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Phone, c.Address, c.Balance.String(),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	return err
}

func (s *session) GetCustomer(ctx context.Context, id billing.CustomerID) (*invoicing.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, phone, address, balance, created_at, updated_at FROM customers WHERE id = ?", id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *session) ListCustomers(ctx context.Context) ([]invoicing.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, phone, address, balance, created_at, updated_at FROM customers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []invoicing.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *session) DeleteCustomer(ctx context.Context, id billing.CustomerID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	return err
}

// rowScanner lets scan helpers work on both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*invoicing.Customer, error) {
	var c invoicing.Customer
	var phone, address sql.NullString
	var balance, createdAt, updatedAt string

	if err := row.Scan(&c.ID, &c.Name, &phone, &address, &balance, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.Phone = phone.String
	c.Address = address.String
	c.Balance = billing.ParseMoney(balance)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *session) SaveProduct(ctx context.Context, p catalog.Product) error {
	query := `
		INSERT INTO products
		(id, name, barcode, unit, sub_unit, conversion_factor, unit_price,
		 sub_unit_price, cost_price, stock, min_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			barcode = excluded.barcode,
			unit = excluded.unit,
			sub_unit = excluded.sub_unit,
			conversion_factor = excluded.conversion_factor,
			unit_price = excluded.unit_price,
			sub_unit_price = excluded.sub_unit_price,
			cost_price = excluded.cost_price,
			stock = excluded.stock,
			min_stock = excluded.min_stock,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Barcode, p.Unit, p.SubUnit,
		p.ConversionFactor.String(), p.UnitPrice.String(), p.SubUnitPrice.String(),
		p.CostPrice.String(), p.Stock.String(), p.MinStock.String(),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return err
}

const selectProduct = `
	SELECT id, name, barcode, unit, sub_unit, conversion_factor, unit_price,
	       sub_unit_price, cost_price, stock, min_stock, created_at, updated_at
	FROM products`

func (s *session) GetProduct(ctx context.Context, id billing.ProductID) (*catalog.Product, error) {
	row := s.db.QueryRowContext(ctx, selectProduct+" WHERE id = ?", id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *session) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx, selectProduct+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *session) DeleteProduct(ctx context.Context, id billing.ProductID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	return err
}

func scanProduct(row rowScanner) (*catalog.Product, error) {
	var p catalog.Product
	var barcode, subUnit sql.NullString
	var conversion, unitPrice, subUnitPrice, costPrice, stock, minStock string
	var createdAt, updatedAt string

	if err := row.Scan(&p.ID, &p.Name, &barcode, &p.Unit, &subUnit,
		&conversion, &unitPrice, &subUnitPrice, &costPrice, &stock, &minStock,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	p.Barcode = barcode.String
	p.SubUnit = billing.Unit(subUnit.String)
	p.ConversionFactor = billing.ParseMoney(conversion)
	if p.ConversionFactor.IsZero() {
		p.ConversionFactor = decimal.NewFromInt(1)
	}
	p.UnitPrice = billing.ParseMoney(unitPrice)
	p.SubUnitPrice = billing.ParseMoney(subUnitPrice)
	p.CostPrice = billing.ParseMoney(costPrice)
	p.Stock = billing.ParseMoney(stock)
	p.MinStock = billing.ParseMoney(minStock)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (s *session) SaveInvoice(ctx context.Context, inv invoicing.Invoice) error {
	itemsJSON, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	var oldBalance, oldPlusTotal, newBalance sql.NullString
	if inv.Snapshot != nil {
		oldBalance = sql.NullString{String: inv.Snapshot.OldBalance.String(), Valid: true}
		oldPlusTotal = sql.NullString{String: inv.Snapshot.OldBalancePlusTotal.String(), Valid: true}
		newBalance = sql.NullString{String: inv.Snapshot.NewBalance.String(), Valid: true}
	}

	query := `
		INSERT INTO invoices
		(id, number, customer_id, items_json, tax_rate, shipping, discount, paid,
		 subtotal, tax_amount, grand_total, remaining,
		 old_balance, old_balance_plus_total, new_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			items_json = excluded.items_json,
			tax_rate = excluded.tax_rate,
			shipping = excluded.shipping,
			discount = excluded.discount,
			paid = excluded.paid,
			subtotal = excluded.subtotal,
			tax_amount = excluded.tax_amount,
			grand_total = excluded.grand_total,
			remaining = excluded.remaining,
			old_balance = excluded.old_balance,
			old_balance_plus_total = excluded.old_balance_plus_total,
			new_balance = excluded.new_balance,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		inv.ID, inv.Number, inv.CustomerID, string(itemsJSON),
		inv.TaxRatePercent.String(), inv.Shipping.String(), inv.Discount.String(),
		inv.PaidAmount.String(),
		inv.Totals.Subtotal.String(), inv.Totals.TaxAmount.String(),
		inv.Totals.GrandTotal.String(), inv.Totals.Remaining.String(),
		oldBalance, oldPlusTotal, newBalance,
		formatTime(inv.CreatedAt), formatTime(inv.UpdatedAt),
	)
	return err
}

const selectInvoice = `
	SELECT id, number, customer_id, items_json, tax_rate, shipping, discount, paid,
	       subtotal, tax_amount, grand_total, remaining,
	       old_balance, old_balance_plus_total, new_balance, created_at, updated_at
	FROM invoices`

func (s *session) GetInvoice(ctx context.Context, id billing.InvoiceID) (*invoicing.Invoice, error) {
	row := s.db.QueryRowContext(ctx, selectInvoice+" WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return inv, err
}

func (s *session) ListInvoices(ctx context.Context) ([]invoicing.Invoice, error) {
	return s.queryInvoices(ctx, selectInvoice+" ORDER BY number DESC")
}

func (s *session) ListInvoicesByCustomer(ctx context.Context, id billing.CustomerID) ([]invoicing.Invoice, error) {
	return s.queryInvoices(ctx, selectInvoice+" WHERE customer_id = ? ORDER BY number DESC", id)
}

func (s *session) DeleteInvoice(ctx context.Context, id billing.InvoiceID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", id)
	return err
}

func (s *session) NextInvoiceNumber(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(number), 0) + 1 FROM invoices").Scan(&next)
	return next, err
}

func (s *session) queryInvoices(ctx context.Context, query string, args ...any) ([]invoicing.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []invoicing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(row rowScanner) (*invoicing.Invoice, error) {
	var inv invoicing.Invoice
	var itemsJSON string
	var taxRate, shipping, discount, paid string
	var subtotal, taxAmount, grandTotal, remaining string
	var oldBalance, oldPlusTotal, newBalance sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &itemsJSON,
		&taxRate, &shipping, &discount, &paid,
		&subtotal, &taxAmount, &grandTotal, &remaining,
		&oldBalance, &oldPlusTotal, &newBalance, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(itemsJSON), &inv.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}

	inv.TaxRatePercent = billing.ParseMoney(taxRate)
	inv.Shipping = billing.ParseMoney(shipping)
	inv.Discount = billing.ParseMoney(discount)
	inv.PaidAmount = billing.ParseMoney(paid)
	inv.Totals = billing.InvoiceTotals{
		Subtotal:   billing.ParseMoney(subtotal),
		TaxAmount:  billing.ParseMoney(taxAmount),
		GrandTotal: billing.ParseMoney(grandTotal),
		Remaining:  billing.ParseMoney(remaining),
	}

	if oldBalance.Valid && oldPlusTotal.Valid && newBalance.Valid {
		inv.Snapshot = &billing.BalanceSnapshot{
			OldBalance:          billing.ParseMoney(oldBalance.String),
			OldBalancePlusTotal: billing.ParseMoney(oldPlusTotal.String),
			NewBalance:          billing.ParseMoney(newBalance.String),
		}
	}

	inv.CreatedAt = parseTime(createdAt)
	inv.UpdatedAt = parseTime(updatedAt)
	return &inv, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
