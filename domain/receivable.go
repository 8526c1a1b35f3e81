package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceivableStatus string

const (
	ReceivablePending ReceivableStatus = "PENDING"
	ReceivablePartial ReceivableStatus = "PARTIAL"
	ReceivablePaid    ReceivableStatus = "PAID"
)

// StatusFor derives the receivable status from its balances.
func StatusFor(total, pending decimal.Decimal) ReceivableStatus {
	switch {
	case pending.IsZero():
		return ReceivablePaid
	case pending.LessThan(total):
		return ReceivablePartial
	default:
		return ReceivablePending
	}
}

// Receivable (cuenta por cobrar) is opened once per credit sale.
type Receivable struct {
	ID             int64            `db:"id" json:"id"`
	SaleID         int64            `db:"sale_id" json:"sale_id"`
	CustomerID     int64            `db:"customer_id" json:"customer_id"`
	TotalAmount    decimal.Decimal  `db:"total_amount" json:"total_amount"`
	PendingBalance decimal.Decimal  `db:"pending_balance" json:"pending_balance"`
	DueDate        time.Time        `db:"due_date" json:"due_date"`
	Status         ReceivableStatus `db:"status" json:"status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`

	Abonos []Abono `db:"-" json:"abonos,omitempty"`
}

// Abono is a partial payment against a receivable. Rows are never updated
// except to stamp the closing that collected them.
type Abono struct {
	ID            int64           `db:"id" json:"id"`
	ReceivableID  int64           `db:"receivable_id" json:"receivable_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	Notes         string          `db:"notes" json:"notes,omitempty"`
	UserID        *int64          `db:"user_id" json:"user_id,omitempty"`
	ClosingID     *int64          `db:"closing_id" json:"closing_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
