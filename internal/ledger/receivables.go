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

// DefaultCreditTerm is the due date offset used when a credit sale has none.
const DefaultCreditTerm = 30 * 24 * time.Hour

// RecordCreditSale writes a credit sale straight into the archive and opens
// its receivable. Credit sales never enter the open register period.
func (s *Service) RecordCreditSale(ctx context.Context, in SaleInput) (*domain.Sale, *domain.Receivable, error) {
	if in.CustomerID == nil {
		return nil, nil, invalid("credit sales require a customer")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, nil, err
	}
	if !in.CashReceived.IsZero() {
		return nil, nil, invalid("credit sales do not take cash at the till")
	}

	now := s.clock.Now()
	dueDate := now.Add(DefaultCreditTerm)
	if in.DueDate != nil {
		dueDate = *in.DueDate
		if dueDay(dueDate, now.Location()).Before(startOfDay(now)) {
			return nil, nil, invalid("due date %s is in the past", dueDate.Format(time.DateOnly))
		}
	}

	var (
		sale *domain.Sale
		rec  *domain.Receivable
	)
	err := s.withTx(ctx, "record credit sale", func(tx *sqlx.Tx) error {
		ok, err := customerExists(ctx, tx, *in.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return invalid("customer %d does not exist", *in.CustomerID)
		}
		items, subtotal, err := priceItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		total, err := saleTotal(subtotal, in.Discount)
		if err != nil {
			return err
		}

		sale = &domain.Sale{
			UserID:        in.UserID,
			PaymentMethod: domain.PaymentCredit,
			Subtotal:      subtotal,
			Discount:      in.Discount,
			Total:         total,
			SaleType:      domain.SaleTypeCredit,
			CustomerID:    in.CustomerID,
			Status:        domain.SaleStatusArchived,
			Notes:         strings.TrimSpace(in.Notes),
			CreatedAt:     now,
			Items:         items,
		}
		if err := writeSale(ctx, tx, sale); err != nil {
			return err
		}

		rec = &domain.Receivable{
			SaleID:         sale.ID,
			CustomerID:     *in.CustomerID,
			TotalAmount:    total,
			PendingBalance: total,
			DueDate:        dueDate,
			Status:         domain.StatusFor(total, total),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = tx.QueryRowxContext(ctx, `INSERT INTO receivables (sale_id, customer_id, total_amount, pending_balance, due_date, status, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			rec.SaleID, rec.CustomerID, rec.TotalAmount, rec.PendingBalance, rec.DueDate, rec.Status, rec.CreatedAt, rec.UpdatedAt,
		).Scan(&rec.ID)
		if err != nil {
			return fmt.Errorf("insert receivable: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("credit sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("receivable_id", rec.ID),
		zap.Int64("customer_id", rec.CustomerID),
		zap.String("total", sale.Total.String()),
	)
	return sale, rec, nil
}

type AbonoInput struct {
	ReceivableID  int64
	Amount        decimal.Decimal
	PaymentMethod domain.PaymentMethod
	Notes         string
	UserID        *int64
}

// RecordAbono applies a partial payment to a receivable. The abono row and
// the balance update commit together or not at all.
func (s *Service) RecordAbono(ctx context.Context, in AbonoInput) (*domain.Abono, decimal.Decimal, error) {
	if !in.Amount.IsPositive() {
		return nil, decimal.Zero, invalid("abono amount must be greater than zero")
	}
	if !in.PaymentMethod.IsValidForPayment() {
		return nil, decimal.Zero, invalid("payment method must be Efectivo, Tarjeta or Transferencia, got %q", in.PaymentMethod)
	}

	var (
		abono   *domain.Abono
		pending decimal.Decimal
	)
	err := s.withTx(ctx, "record abono", func(tx *sqlx.Tx) error {
		var rec struct {
			domain.Receivable
			Version int64 `db:"version"`
		}
		err := tx.GetContext(ctx, &rec, `SELECT `+receivableColumns+`, version FROM receivables WHERE id = $1`, in.ReceivableID)
		if errors.Is(err, sql.ErrNoRows) {
			return newError(ErrNotFound, "receivable %d", in.ReceivableID)
		}
		if err != nil {
			return err
		}
		if in.Amount.GreaterThan(rec.PendingBalance) {
			return newError(ErrOverpayment, "amount %s exceeds pending balance %s of receivable %d", in.Amount, rec.PendingBalance, rec.ID)
		}

		now := s.clock.Now()
		pending = rec.PendingBalance.Sub(in.Amount)
		res, err := tx.ExecContext(ctx, `UPDATE receivables SET pending_balance = $1, status = $2, updated_at = $3, version = version + 1 WHERE id = $4 AND version = $5`,
			pending, domain.StatusFor(rec.TotalAmount, pending), now, rec.ID, rec.Version)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return newError(ErrRetryable, "receivable %d was modified concurrently", rec.ID)
		}

		abono = &domain.Abono{
			ReceivableID:  rec.ID,
			Amount:        in.Amount,
			PaymentMethod: in.PaymentMethod,
			Notes:         strings.TrimSpace(in.Notes),
			UserID:        in.UserID,
			CreatedAt:     now,
		}
		return tx.QueryRowxContext(ctx, `INSERT INTO abonos (receivable_id, amount, payment_method, notes, user_id, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			abono.ReceivableID, abono.Amount, abono.PaymentMethod, abono.Notes, abono.UserID, abono.CreatedAt).Scan(&abono.ID)
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.invalidateSummary(ctx)
	s.log.Info("abono recorded",
		zap.Int64("abono_id", abono.ID),
		zap.Int64("receivable_id", abono.ReceivableID),
		zap.String("amount", abono.Amount.String()),
		zap.String("pending_balance", pending.String()),
	)
	return abono, pending, nil
}

const receivableColumns = `id, sale_id, customer_id, total_amount, pending_balance, due_date, status, created_at, updated_at`

// GetReceivable returns a receivable with its abonos, oldest first.
func (s *Service) GetReceivable(ctx context.Context, id int64) (*domain.Receivable, error) {
	var rec domain.Receivable
	err := s.db.GetContext(ctx, &rec, `SELECT `+receivableColumns+` FROM receivables WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "receivable %d", id)
	}
	if err != nil {
		return nil, fatal("get receivable", err)
	}
	rec.Abonos = []domain.Abono{}
	if err := s.db.SelectContext(ctx, &rec.Abonos, `SELECT `+abonoColumns+` FROM abonos WHERE receivable_id = $1 ORDER BY id`, id); err != nil {
		return nil, fatal("list abonos", err)
	}
	return &rec, nil
}

// ListReceivables returns receivables, only unsettled ones when openOnly.
func (s *Service) ListReceivables(ctx context.Context, openOnly bool) ([]domain.Receivable, error) {
	query := `SELECT ` + receivableColumns + ` FROM receivables`
	var args []any
	if openOnly {
		query += ` WHERE status <> $1`
		args = append(args, domain.ReceivablePaid)
	}
	query += ` ORDER BY due_date, id`

	recs := []domain.Receivable{}
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fatal("list receivables", err)
	}
	return recs, nil
}

// dueDay anchors the calendar date of t to loc, so a date typed by the
// caller compares against the register clock's day regardless of the zone it
// was parsed in.
func dueDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
