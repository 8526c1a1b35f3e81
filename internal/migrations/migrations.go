package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Money columns are TEXT so decimal values round-trip exactly.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS customers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT ''
        );`,
	`CREATE TABLE IF NOT EXISTS products (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sku TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            price TEXT NOT NULL,
            stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
        );`,
	`CREATE TABLE IF NOT EXISTS closings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            period_start DATETIME NOT NULL,
            closed_at DATETIME NOT NULL,
            closed_by INTEGER,
            notes TEXT NOT NULL DEFAULT '',
            sales_count INTEGER NOT NULL,
            sales_total TEXT NOT NULL,
            discount_total TEXT NOT NULL,
            cash_total TEXT NOT NULL,
            card_total TEXT NOT NULL,
            transfer_total TEXT NOT NULL,
            abonos_count INTEGER NOT NULL,
            abonos_total TEXT NOT NULL,
            abonos_cash TEXT NOT NULL,
            abonos_card TEXT NOT NULL,
            abonos_transfer TEXT NOT NULL,
            extra_incomes_count INTEGER NOT NULL,
            extra_incomes_total TEXT NOT NULL,
            total_income TEXT NOT NULL,
            cash_in_drawer TEXT NOT NULL,
            FOREIGN KEY(closed_by) REFERENCES users(id)
        );`,
	`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER,
            payment_method TEXT NOT NULL,
            subtotal TEXT NOT NULL,
            discount TEXT NOT NULL DEFAULT '0',
            total TEXT NOT NULL,
            cash_received TEXT NOT NULL DEFAULT '0',
            change_given TEXT NOT NULL DEFAULT '0',
            sale_type TEXT NOT NULL,
            customer_id INTEGER,
            cash_amount TEXT NOT NULL DEFAULT '0',
            card_amount TEXT NOT NULL DEFAULT '0',
            transfer_amount TEXT NOT NULL DEFAULT '0',
            status TEXT NOT NULL,
            closing_id INTEGER,
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            FOREIGN KEY(user_id) REFERENCES users(id),
            FOREIGN KEY(customer_id) REFERENCES customers(id),
            FOREIGN KEY(closing_id) REFERENCES closings(id)
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sales_status ON sales(status);`,
	`CREATE TABLE IF NOT EXISTS sale_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id INTEGER NOT NULL,
            product_id INTEGER,
            description TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL,
            unit_price TEXT NOT NULL,
            subtotal TEXT NOT NULL,
            FOREIGN KEY(sale_id) REFERENCES sales(id),
            FOREIGN KEY(product_id) REFERENCES products(id)
        );`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            product_id INTEGER NOT NULL,
            sale_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL,
            reason TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            FOREIGN KEY(product_id) REFERENCES products(id),
            FOREIGN KEY(sale_id) REFERENCES sales(id)
        );`,
	`CREATE TABLE IF NOT EXISTS receivables (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id INTEGER NOT NULL UNIQUE,
            customer_id INTEGER NOT NULL,
            total_amount TEXT NOT NULL,
            pending_balance TEXT NOT NULL,
            due_date DATETIME NOT NULL,
            status TEXT NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            FOREIGN KEY(sale_id) REFERENCES sales(id),
            FOREIGN KEY(customer_id) REFERENCES customers(id)
        );`,
	`CREATE TABLE IF NOT EXISTS abonos (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            receivable_id INTEGER NOT NULL,
            amount TEXT NOT NULL,
            payment_method TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT '',
            user_id INTEGER,
            closing_id INTEGER,
            created_at DATETIME NOT NULL,
            FOREIGN KEY(receivable_id) REFERENCES receivables(id),
            FOREIGN KEY(user_id) REFERENCES users(id),
            FOREIGN KEY(closing_id) REFERENCES closings(id)
        );`,
	`CREATE TABLE IF NOT EXISTS extra_incomes (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            amount TEXT NOT NULL,
            payment_method TEXT NOT NULL,
            description TEXT NOT NULL,
            user_id INTEGER,
            closing_id INTEGER,
            created_at DATETIME NOT NULL,
            FOREIGN KEY(user_id) REFERENCES users(id),
            FOREIGN KEY(closing_id) REFERENCES closings(id)
        );`,
}

// Run creates the database schema required for the register backend.
func Run(db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
