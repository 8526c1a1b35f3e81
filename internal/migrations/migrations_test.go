package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joyeria/pos/internal/database"
)

func TestRun(t *testing.T) {
	db, err := database.Connect(filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Run(db))
	require.NoError(t, Run(db), "migrations are re-runnable")

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.Equal(t, []string{"abonos", "closings", "customers", "extra_incomes", "inventory_movements", "products", "receivables", "sale_items", "sales", "users"}, tables)

	_, err = db.Exec(`INSERT INTO products (sku, name, price, stock) VALUES ('X', 'x', '1', -1)`)
	assert.Error(t, err, "stock cannot go negative")

	_, err = db.Exec(`INSERT INTO sale_items (sale_id, quantity, unit_price, subtotal) VALUES (999, 1, '1', '1')`)
	assert.Error(t, err, "sale items need an existing sale")
}
