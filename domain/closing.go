package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtraIncome is money put in the drawer that does not come from a sale.
type ExtraIncome struct {
	ID            int64           `db:"id" json:"id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	Description   string          `db:"description" json:"description"`
	UserID        *int64          `db:"user_id" json:"user_id,omitempty"`
	ClosingID     *int64          `db:"closing_id" json:"closing_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// DaySummary aggregates the open register period.
type DaySummary struct {
	SalesCount    int64           `db:"sales_count" json:"total_ventas"`
	SalesTotal    decimal.Decimal `db:"sales_total" json:"monto_ventas"`
	DiscountTotal decimal.Decimal `db:"discount_total" json:"total_descuentos"`
	CashTotal     decimal.Decimal `db:"cash_total" json:"efectivo"`
	CardTotal     decimal.Decimal `db:"card_total" json:"tarjeta"`
	TransferTotal decimal.Decimal `db:"transfer_total" json:"transferencia"`

	AbonosCount    int64           `db:"abonos_count" json:"total_abonos"`
	AbonosTotal    decimal.Decimal `db:"abonos_total" json:"monto_abonos"`
	AbonosCash     decimal.Decimal `db:"abonos_cash" json:"abonos_efectivo"`
	AbonosCard     decimal.Decimal `db:"abonos_card" json:"abonos_tarjeta"`
	AbonosTransfer decimal.Decimal `db:"abonos_transfer" json:"abonos_transferencia"`

	ExtraIncomesCount int64           `db:"extra_incomes_count" json:"total_ingresos_extra"`
	ExtraIncomesTotal decimal.Decimal `db:"extra_incomes_total" json:"monto_ingresos_extra"`

	TotalIncome  decimal.Decimal `db:"total_income" json:"total_ingresos"`
	CashInDrawer decimal.Decimal `db:"cash_in_drawer" json:"efectivo_en_caja"`
}

// Closing (cierre de caja) is the immutable snapshot written when the
// register is closed.
type Closing struct {
	ID          int64     `db:"id" json:"id"`
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	ClosedAt    time.Time `db:"closed_at" json:"closed_at"`
	ClosedBy    *int64    `db:"closed_by" json:"closed_by,omitempty"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	DaySummary

	Sales []Sale `db:"-" json:"sales,omitempty"`
}
