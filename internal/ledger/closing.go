package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"joyeria/pos/domain"
)

type CloseInput struct {
	UserID *int64
	Notes  string
}

// CloseRegister seals the open period. In one transaction it snapshots the
// period, persists the closing record computed from that snapshot, archives
// the day-ledger sales and stamps the period's abonos and extra incomes with
// the closing id. Any failure leaves the open period exactly as it was.
//
// Only one closing runs at a time; a second caller gets ErrRetryable. Sales
// recorded while a closing runs wait for the database and land in the next
// period.
func (s *Service) CloseRegister(ctx context.Context, in CloseInput) (*domain.Closing, error) {
	if !s.closing.CompareAndSwap(false, true) {
		return nil, newError(ErrRetryable, "a register closing is already in progress")
	}
	defer s.closing.Store(false)

	var closing *domain.Closing
	err := s.withTx(ctx, "close register", func(tx *sqlx.Tx) error {
		p, err := loadOpenPeriod(ctx, tx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		start, err := periodStart(ctx, tx, p, now)
		if err != nil {
			return err
		}

		closing = &domain.Closing{
			PeriodStart: start,
			ClosedAt:    now,
			ClosedBy:    in.UserID,
			Notes:       strings.TrimSpace(in.Notes),
			DaySummary:  p.summarize(),
		}
		if err := insertClosing(ctx, tx, closing); err != nil {
			return err
		}

		if err := stamp(ctx, tx, `UPDATE sales SET status = $1, closing_id = $2 WHERE status = $3 AND sale_type = $4`,
			len(p.sales), "sales", domain.SaleStatusArchived, closing.ID, domain.SaleStatusPendingClose, domain.SaleTypeCash); err != nil {
			return err
		}
		if err := stamp(ctx, tx, `UPDATE abonos SET closing_id = $1 WHERE closing_id IS NULL`,
			len(p.abonos), "abonos", closing.ID); err != nil {
			return err
		}
		if err := stamp(ctx, tx, `UPDATE extra_incomes SET closing_id = $1 WHERE closing_id IS NULL`,
			len(p.extras), "extra incomes", closing.ID); err != nil {
			return err
		}

		closing.Sales = p.sales
		ptrs := make([]*domain.Sale, len(closing.Sales))
		for i := range closing.Sales {
			closing.Sales[i].Status = domain.SaleStatusArchived
			closing.Sales[i].ClosingID = &closing.ID
			ptrs[i] = &closing.Sales[i]
		}
		return attachItems(ctx, tx, ptrs)
	})
	if err != nil {
		s.log.Error("register closing rolled back", zap.Error(err))
		return nil, err
	}

	s.invalidateSummary(ctx)
	s.log.Info("register closed",
		zap.Int64("closing_id", closing.ID),
		zap.Int64("sales_count", closing.SalesCount),
		zap.Int64("abonos_count", closing.AbonosCount),
		zap.String("total_income", closing.TotalIncome.String()),
	)
	return closing, nil
}

// stamp runs an archiving update and checks it touched exactly the rows in
// the snapshot. A mismatch means the period changed under the transaction.
func stamp(ctx context.Context, tx *sqlx.Tx, query string, want int, what string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("archive %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive %s: %w", what, err)
	}
	if n != int64(want) {
		return newError(ErrRetryable, "archived %d %s, snapshot had %d", n, what, want)
	}
	return nil
}

// periodStart is the previous closing time, or for the first closing the
// oldest row in the period.
func periodStart(ctx context.Context, q sqlx.QueryerContext, p *openPeriod, now time.Time) (time.Time, error) {
	var last time.Time
	err := sqlx.GetContext(ctx, q, &last, `SELECT closed_at FROM closings ORDER BY id DESC LIMIT 1`)
	if err == nil {
		return last, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("load previous closing: %w", err)
	}

	start := now
	for _, sale := range p.sales {
		if sale.CreatedAt.Before(start) {
			start = sale.CreatedAt
		}
	}
	for _, a := range p.abonos {
		if a.CreatedAt.Before(start) {
			start = a.CreatedAt
		}
	}
	for _, e := range p.extras {
		if e.CreatedAt.Before(start) {
			start = e.CreatedAt
		}
	}
	return start, nil
}

func insertClosing(ctx context.Context, tx *sqlx.Tx, c *domain.Closing) error {
	rows, err := sqlx.NamedQueryContext(ctx, tx, `INSERT INTO closings (period_start, closed_at, closed_by, notes, sales_count, sales_total, discount_total,
                cash_total, card_total, transfer_total, abonos_count, abonos_total, abonos_cash, abonos_card, abonos_transfer,
                extra_incomes_count, extra_incomes_total, total_income, cash_in_drawer)
                VALUES (:period_start, :closed_at, :closed_by, :notes, :sales_count, :sales_total, :discount_total,
                :cash_total, :card_total, :transfer_total, :abonos_count, :abonos_total, :abonos_cash, :abonos_card, :abonos_transfer,
                :extra_incomes_count, :extra_incomes_total, :total_income, :cash_in_drawer) RETURNING id`, c)
	if err != nil {
		return fmt.Errorf("insert closing: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("insert closing: %w", err)
		}
		return errors.New("insert closing: no id returned")
	}
	if err := rows.Scan(&c.ID); err != nil {
		return fmt.Errorf("insert closing: %w", err)
	}
	return rows.Close()
}

const closingColumns = `id, period_start, closed_at, closed_by, notes, sales_count, sales_total, discount_total, cash_total, card_total, transfer_total,
        abonos_count, abonos_total, abonos_cash, abonos_card, abonos_transfer, extra_incomes_count, extra_incomes_total, total_income, cash_in_drawer`

// ListClosings returns the most recent closings first.
func (s *Service) ListClosings(ctx context.Context, limit int) ([]domain.Closing, error) {
	if limit <= 0 {
		limit = 30
	}
	closings := []domain.Closing{}
	if err := s.db.SelectContext(ctx, &closings, `SELECT `+closingColumns+` FROM closings ORDER BY id DESC LIMIT $1`, limit); err != nil {
		return nil, fatal("list closings", err)
	}
	return closings, nil
}

// GetClosing returns a closing with the sales it archived.
func (s *Service) GetClosing(ctx context.Context, id int64) (*domain.Closing, error) {
	var c domain.Closing
	err := s.db.GetContext(ctx, &c, `SELECT `+closingColumns+` FROM closings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "closing %d", id)
	}
	if err != nil {
		return nil, fatal("get closing", err)
	}

	if err := s.db.SelectContext(ctx, &c.Sales, `SELECT `+saleColumns+` FROM sales WHERE closing_id = $1 ORDER BY id`, id); err != nil {
		return nil, fatal("list closing sales", err)
	}
	ptrs := make([]*domain.Sale, len(c.Sales))
	for i := range c.Sales {
		ptrs[i] = &c.Sales[i]
	}
	if err := attachItems(ctx, s.db, ptrs); err != nil {
		return nil, fatal("list closing sale items", err)
	}
	return &c, nil
}
