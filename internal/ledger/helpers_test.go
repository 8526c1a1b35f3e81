package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"joyeria/pos/domain"
	"joyeria/pos/internal/cache"
	"joyeria/pos/internal/database"
	"joyeria/pos/internal/migrations"
)

var testNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	db       *sqlx.DB
	ctx      context.Context
	now      time.Time
	ring     int64 // product: stock 5, price 5000
	chain    int64 // product: stock 1, price 3000
	customer int64
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))

	f := &fixture{db: db, ctx: context.Background(), now: testNow}
	f.ring = insertProduct(t, db, "AN-001", "Anillo oro 14k", "5000", 5)
	f.chain = insertProduct(t, db, "CA-002", "Cadena plata", "3000", 1)
	require.NoError(t, db.QueryRowx(`INSERT INTO customers (name, phone) VALUES ($1, $2) RETURNING id`, "Maria Solis", "8888-0000").Scan(&f.customer))

	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return f.now }))}, opts...)
	f.svc = NewService(db, opts...)
	return f
}

func newCachedFixture(t *testing.T) (*fixture, *cache.Memory) {
	c := cache.NewMemory(8)
	return newFixture(t, WithCache(c, time.Minute)), c
}

func insertProduct(t *testing.T, db *sqlx.DB, sku, name, price string, stock int64) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.QueryRowx(`INSERT INTO products (sku, name, price, stock) VALUES ($1, $2, $3, $4) RETURNING id`, sku, name, price, stock).Scan(&id))
	return id
}

func (f *fixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Get(&n, `SELECT stock FROM products WHERE id = $1`, productID))
	return n
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, query, args...))
	return n
}

func (f *fixture) cashSale(t *testing.T, productID int64, qty int64, method domain.PaymentMethod) *domain.Sale {
	t.Helper()
	sale, err := f.svc.RecordSale(f.ctx, SaleInput{
		Items:         []ItemInput{{ProductID: &productID, Quantity: qty}},
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return sale
}

func (f *fixture) otrosSale(t *testing.T, amount string, method domain.PaymentMethod) *domain.Sale {
	t.Helper()
	sale, err := f.svc.RecordSale(f.ctx, SaleInput{
		Items:         []ItemInput{{Description: "Reparacion", Quantity: 1, UnitPrice: dec(amount)}},
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return sale
}

func (f *fixture) creditSale(t *testing.T, amount string) (*domain.Sale, *domain.Receivable) {
	t.Helper()
	sale, rec, err := f.svc.RecordCreditSale(f.ctx, SaleInput{
		Items:      []ItemInput{{Description: "Juego de aretes", Quantity: 1, UnitPrice: dec(amount)}},
		SaleType:   domain.SaleTypeCredit,
		CustomerID: &f.customer,
	})
	require.NoError(t, err)
	return sale, rec
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

// assertDec compares decimals by value, ignoring exponent differences.
func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}
