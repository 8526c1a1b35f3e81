package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"joyeria/pos/domain"
)

const (
	abonoColumns       = `id, receivable_id, amount, payment_method, notes, user_id, closing_id, created_at`
	extraIncomeColumns = `id, amount, payment_method, description, user_id, closing_id, created_at`
)

// openPeriod is everything recorded since the last closing: the day-ledger
// sales plus abonos and extra incomes not yet collected by a closing.
type openPeriod struct {
	sales  []domain.Sale
	abonos []domain.Abono
	extras []domain.ExtraIncome
}

func loadOpenPeriod(ctx context.Context, q sqlx.QueryerContext) (*openPeriod, error) {
	p := &openPeriod{}
	if err := sqlx.SelectContext(ctx, q, &p.sales, `SELECT `+saleColumns+` FROM sales WHERE status = $1 AND sale_type = $2 ORDER BY id`,
		domain.SaleStatusPendingClose, domain.SaleTypeCash); err != nil {
		return nil, fmt.Errorf("load open sales: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, &p.abonos, `SELECT `+abonoColumns+` FROM abonos WHERE closing_id IS NULL ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load open abonos: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, &p.extras, `SELECT `+extraIncomeColumns+` FROM extra_incomes WHERE closing_id IS NULL ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load open extra incomes: %w", err)
	}
	return p, nil
}

func (p *openPeriod) summarize() domain.DaySummary {
	sum := domain.DaySummary{
		SalesTotal:        decimal.Zero,
		DiscountTotal:     decimal.Zero,
		CashTotal:         decimal.Zero,
		CardTotal:         decimal.Zero,
		TransferTotal:     decimal.Zero,
		AbonosTotal:       decimal.Zero,
		AbonosCash:        decimal.Zero,
		AbonosCard:        decimal.Zero,
		AbonosTransfer:    decimal.Zero,
		ExtraIncomesTotal: decimal.Zero,
	}
	extraCash := decimal.Zero

	for _, s := range p.sales {
		sum.SalesCount++
		sum.SalesTotal = sum.SalesTotal.Add(s.Total)
		sum.DiscountTotal = sum.DiscountTotal.Add(s.Discount)
		sum.CashTotal = sum.CashTotal.Add(s.CashAmount)
		sum.CardTotal = sum.CardTotal.Add(s.CardAmount)
		sum.TransferTotal = sum.TransferTotal.Add(s.TransferAmount)
	}
	for _, a := range p.abonos {
		sum.AbonosCount++
		sum.AbonosTotal = sum.AbonosTotal.Add(a.Amount)
		switch a.PaymentMethod {
		case domain.PaymentCash:
			sum.AbonosCash = sum.AbonosCash.Add(a.Amount)
		case domain.PaymentCard:
			sum.AbonosCard = sum.AbonosCard.Add(a.Amount)
		case domain.PaymentTransfer:
			sum.AbonosTransfer = sum.AbonosTransfer.Add(a.Amount)
		}
	}
	for _, e := range p.extras {
		sum.ExtraIncomesCount++
		sum.ExtraIncomesTotal = sum.ExtraIncomesTotal.Add(e.Amount)
		if e.PaymentMethod == domain.PaymentCash {
			extraCash = extraCash.Add(e.Amount)
		}
	}

	sum.TotalIncome = sum.SalesTotal.Add(sum.AbonosTotal).Add(sum.ExtraIncomesTotal)
	sum.CashInDrawer = sum.CashTotal.Add(sum.AbonosCash).Add(extraCash)
	return sum
}

// DaySummary aggregates the open register period. It never writes and
// credit sales never contribute to it.
func (s *Service) DaySummary(ctx context.Context) (*domain.DaySummary, error) {
	var cached domain.DaySummary
	if s.cachedSummary(ctx, &cached) {
		return &cached, nil
	}

	gen := s.summaryGeneration()
	var sum domain.DaySummary
	err := s.withTx(ctx, "day summary", func(tx *sqlx.Tx) error {
		p, err := loadOpenPeriod(ctx, tx)
		if err != nil {
			return err
		}
		sum = p.summarize()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.storeSummary(ctx, gen, sum)
	return &sum, nil
}

type ExtraIncomeInput struct {
	Amount        decimal.Decimal
	PaymentMethod domain.PaymentMethod
	Description   string
	UserID        *int64
}

// RecordExtraIncome logs money entering the drawer outside of a sale.
func (s *Service) RecordExtraIncome(ctx context.Context, in ExtraIncomeInput) (*domain.ExtraIncome, error) {
	if !in.Amount.IsPositive() {
		return nil, invalid("extra income amount must be greater than zero")
	}
	if !in.PaymentMethod.IsValidForPayment() {
		return nil, invalid("payment method must be Efectivo, Tarjeta or Transferencia, got %q", in.PaymentMethod)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, invalid("extra income needs a description")
	}

	income := &domain.ExtraIncome{
		Amount:        in.Amount,
		PaymentMethod: in.PaymentMethod,
		Description:   desc,
		UserID:        in.UserID,
		CreatedAt:     s.clock.Now(),
	}
	err := s.db.QueryRowxContext(ctx, `INSERT INTO extra_incomes (amount, payment_method, description, user_id, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		income.Amount, income.PaymentMethod, income.Description, income.UserID, income.CreatedAt).Scan(&income.ID)
	if err != nil {
		return nil, fatal("record extra income", err)
	}

	s.invalidateSummary(ctx)
	s.log.Info("extra income recorded", zap.Int64("id", income.ID), zap.String("amount", income.Amount.String()))
	return income, nil
}
