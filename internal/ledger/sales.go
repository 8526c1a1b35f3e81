package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"joyeria/pos/domain"
)

const movementReasonSale = "VENTA"

// ItemInput is one requested line. Exactly one of ProductID or Description
// must be set; free-text lines carry their own UnitPrice.
type ItemInput struct {
	ProductID   *int64
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
}

type SaleInput struct {
	UserID        *int64
	Items         []ItemInput
	PaymentMethod domain.PaymentMethod
	Discount      decimal.Decimal
	CashReceived  decimal.Decimal
	SaleType      domain.SaleType
	CustomerID    *int64
	// Per-method split, only read for Mixto.
	CashAmount     decimal.Decimal
	CardAmount     decimal.Decimal
	TransferAmount decimal.Decimal
	// DueDate applies to credit sales only.
	DueDate *time.Time
	Notes   string
}

// RecordSale writes a Contado sale into the open register period. Credit
// sales are handed to RecordCreditSale.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (*domain.Sale, error) {
	switch in.SaleType {
	case "", domain.SaleTypeCash:
	case domain.SaleTypeCredit:
		sale, _, err := s.RecordCreditSale(ctx, in)
		return sale, err
	default:
		return nil, invalid("unknown sale type %q", in.SaleType)
	}
	if !in.PaymentMethod.IsValidForSale() {
		return nil, invalid("payment method must be Efectivo, Tarjeta, Transferencia or Mixto, got %q", in.PaymentMethod)
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	var sale *domain.Sale
	err := s.withTx(ctx, "record sale", func(tx *sqlx.Tx) error {
		if in.CustomerID != nil {
			ok, err := customerExists(ctx, tx, *in.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return invalid("customer %d does not exist", *in.CustomerID)
			}
		}
		items, subtotal, err := priceItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		total, err := saleTotal(subtotal, in.Discount)
		if err != nil {
			return err
		}
		pay, err := settle(in, total)
		if err != nil {
			return err
		}

		sale = &domain.Sale{
			UserID:         in.UserID,
			PaymentMethod:  in.PaymentMethod,
			Subtotal:       subtotal,
			Discount:       in.Discount,
			Total:          total,
			CashReceived:   pay.received,
			Change:         pay.change,
			SaleType:       domain.SaleTypeCash,
			CustomerID:     in.CustomerID,
			CashAmount:     pay.cash,
			CardAmount:     pay.card,
			TransferAmount: pay.transfer,
			Status:         domain.SaleStatusPendingClose,
			Notes:          strings.TrimSpace(in.Notes),
			CreatedAt:      s.clock.Now(),
			Items:          items,
		}
		return writeSale(ctx, tx, sale)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx)
	s.log.Info("sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.String("payment_method", string(sale.PaymentMethod)),
		zap.String("total", sale.Total.String()),
	)
	return sale, nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return invalid("a sale needs at least one item")
	}
	for i, it := range items {
		if it.ProductID == nil && strings.TrimSpace(it.Description) == "" {
			return invalid("item %d needs a product_id or a description", i+1)
		}
		if it.ProductID != nil && strings.TrimSpace(it.Description) != "" {
			return invalid("item %d cannot have both product_id and description", i+1)
		}
		if it.Quantity <= 0 {
			return invalid("item %d quantity must be greater than zero", i+1)
		}
		if it.UnitPrice.IsNegative() {
			return invalid("item %d unit price cannot be negative", i+1)
		}
		if it.ProductID == nil && !it.UnitPrice.IsPositive() {
			return invalid("item %d without product needs a unit price", i+1)
		}
	}
	return nil
}

// priceItems resolves inventory prices and checks stock. The stock check
// here only produces an early, precise error; decrementStock is the guard.
func priceItems(ctx context.Context, q sqlx.QueryerContext, in []ItemInput) ([]domain.SaleItem, decimal.Decimal, error) {
	items := make([]domain.SaleItem, 0, len(in))
	requested := make(map[int64]int64)
	subtotal := decimal.Zero

	for _, it := range in {
		line := domain.SaleItem{
			ProductID:   it.ProductID,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
		if it.ProductID != nil {
			p, err := getProduct(ctx, q, *it.ProductID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			requested[p.ID] += it.Quantity
			if p.Stock < requested[p.ID] {
				return nil, decimal.Zero, newError(ErrStock, "product %d (%s) has %d units, %d requested", p.ID, p.Name, p.Stock, requested[p.ID])
			}
			if line.UnitPrice.IsZero() {
				line.UnitPrice = p.Price
			}
			if line.Description == "" {
				line.Description = p.Name
			}
		}
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
		subtotal = subtotal.Add(line.Subtotal)
		items = append(items, line)
	}
	return items, subtotal, nil
}

func saleTotal(subtotal, discount decimal.Decimal) (decimal.Decimal, error) {
	if discount.IsNegative() {
		return decimal.Zero, invalid("discount cannot be negative")
	}
	if discount.GreaterThan(subtotal) {
		return decimal.Zero, invalid("discount %s exceeds subtotal %s", discount, subtotal)
	}
	return subtotal.Sub(discount), nil
}

type settlement struct {
	cash, card, transfer decimal.Decimal
	received, change     decimal.Decimal
}

// settle splits total across payment methods and computes the change owed.
// A zero CashReceived means the exact cash amount was handed over.
func settle(in SaleInput, total decimal.Decimal) (settlement, error) {
	var p settlement
	switch in.PaymentMethod {
	case domain.PaymentCash:
		p.cash = total
	case domain.PaymentCard:
		p.card = total
	case domain.PaymentTransfer:
		p.transfer = total
	case domain.PaymentMixed:
		if in.CashAmount.IsNegative() || in.CardAmount.IsNegative() || in.TransferAmount.IsNegative() {
			return p, invalid("mixed payment amounts cannot be negative")
		}
		sum := in.CashAmount.Add(in.CardAmount).Add(in.TransferAmount)
		if !sum.Equal(total) {
			return p, invalid("mixed payment amounts add up to %s, total is %s", sum, total)
		}
		p.cash, p.card, p.transfer = in.CashAmount, in.CardAmount, in.TransferAmount
	}

	if in.CashReceived.IsNegative() {
		return p, invalid("cash received cannot be negative")
	}
	if p.cash.IsZero() {
		if !in.CashReceived.IsZero() {
			return p, invalid("cash received given for a sale with no cash portion")
		}
		return p, nil
	}
	p.received = in.CashReceived
	if p.received.IsZero() {
		p.received = p.cash
	}
	if p.received.LessThan(p.cash) {
		return p, invalid("cash received %s is less than the cash due %s", p.received, p.cash)
	}
	p.change = p.received.Sub(p.cash)
	return p, nil
}

// writeSale inserts the sale, its lines, and one inventory movement plus a
// stock decrement per inventory-linked line.
func writeSale(ctx context.Context, tx *sqlx.Tx, sale *domain.Sale) error {
	err := tx.QueryRowxContext(ctx, `INSERT INTO sales (user_id, payment_method, subtotal, discount, total, cash_received, change_given, sale_type, customer_id, cash_amount, card_amount, transfer_amount, status, notes, created_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
		sale.UserID, sale.PaymentMethod, sale.Subtotal, sale.Discount, sale.Total, sale.CashReceived, sale.Change,
		sale.SaleType, sale.CustomerID, sale.CashAmount, sale.CardAmount, sale.TransferAmount, sale.Status, sale.Notes, sale.CreatedAt,
	).Scan(&sale.ID)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err := tx.QueryRowxContext(ctx, `INSERT INTO sale_items (sale_id, product_id, description, quantity, unit_price, subtotal) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			item.SaleID, item.ProductID, item.Description, item.Quantity, item.UnitPrice, item.Subtotal).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
		if item.ProductID == nil {
			continue
		}
		if err := decrementStock(ctx, tx, *item.ProductID, item.Quantity); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO inventory_movements (product_id, sale_id, quantity, reason, created_at) VALUES ($1, $2, $3, $4, $5)`,
			*item.ProductID, sale.ID, -item.Quantity, movementReasonSale, sale.CreatedAt); err != nil {
			return fmt.Errorf("insert inventory movement: %w", err)
		}
	}
	return nil
}

const saleColumns = `id, user_id, payment_method, subtotal, discount, total, cash_received, change_given, sale_type, customer_id, cash_amount, card_amount, transfer_amount, status, closing_id, notes, created_at`

// SaleFilter narrows ListSales. Zero values match everything.
type SaleFilter struct {
	Status    domain.SaleStatus
	SaleType  domain.SaleType
	ClosingID *int64
	Limit     int
}

// ListSales returns sales from both the open period and the archive, newest
// first.
func (s *Service) ListSales(ctx context.Context, f SaleFilter) ([]domain.Sale, error) {
	var (
		args    []any
		clauses []string
	)
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.SaleType != "" {
		args = append(args, f.SaleType)
		clauses = append(clauses, fmt.Sprintf("sale_type = $%d", len(args)))
	}
	if f.ClosingID != nil {
		args = append(args, *f.ClosingID)
		clauses = append(clauses, fmt.Sprintf("closing_id = $%d", len(args)))
	}
	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	sales := []domain.Sale{}
	if err := s.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, fatal("list sales", err)
	}
	return sales, nil
}

// GetSale returns a sale with its lines.
func (s *Service) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.GetContext(ctx, &sale, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "sale %d", id)
	}
	if err != nil {
		return nil, fatal("get sale", err)
	}
	if err := attachItems(ctx, s.db, []*domain.Sale{&sale}); err != nil {
		return nil, fatal("get sale items", err)
	}
	return &sale, nil
}

func attachItems(ctx context.Context, q sqlx.QueryerContext, sales []*domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]int64, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
	}
	query, args, err := sqlx.In(`SELECT id, sale_id, product_id, description, quantity, unit_price, subtotal FROM sale_items WHERE sale_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	var rows []domain.SaleItem
	if err := sqlx.SelectContext(ctx, q, &rows, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return err
	}
	bySale := make(map[int64][]domain.SaleItem)
	for _, row := range rows {
		bySale[row.SaleID] = append(bySale[row.SaleID], row)
	}
	for _, sale := range sales {
		sale.Items = bySale[sale.ID]
	}
	return nil
}
