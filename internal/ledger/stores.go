package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"joyeria/pos/domain"
)

func getProduct(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, q, &p, `SELECT id, sku, name, price, stock FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invalid("product %d does not exist", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// decrementStock takes qty units of a product, refusing to go below zero.
// The guard lives in the UPDATE itself so two concurrent sales cannot both
// pass a stale stock read.
func decrementStock(ctx context.Context, tx *sqlx.Tx, productID, qty int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $3`, qty, productID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(ErrStock, "product %d has fewer than %d units available", productID, qty)
	}
	return nil
}

func customerExists(ctx context.Context, q sqlx.QueryerContext, id int64) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(1) FROM customers WHERE id = $1`, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListProducts returns the catalog with current stock.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := s.db.SelectContext(ctx, &products, `SELECT id, sku, name, price, stock FROM products ORDER BY name`); err != nil {
		return nil, fatal("list products", err)
	}
	return products, nil
}
