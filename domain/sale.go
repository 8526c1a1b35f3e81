package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Efectivo"
	PaymentCard     PaymentMethod = "Tarjeta"
	PaymentTransfer PaymentMethod = "Transferencia"
	PaymentMixed    PaymentMethod = "Mixto"
	// PaymentCredit is stamped on credit sales; nothing is collected at the till.
	PaymentCredit PaymentMethod = "Credito"
)

// IsValidForSale reports whether m can settle a cash-ledger sale.
func (m PaymentMethod) IsValidForSale() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMixed:
		return true
	}
	return false
}

// IsValidForPayment reports whether m can be used for abonos and extra incomes.
func (m PaymentMethod) IsValidForPayment() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

type SaleType string

const (
	SaleTypeCash   SaleType = "Contado"
	SaleTypeCredit SaleType = "Credito"
)

type SaleStatus string

const (
	SaleStatusPendingClose SaleStatus = "PENDING_CLOSE"
	SaleStatusArchived     SaleStatus = "ARCHIVED"
)

type Sale struct {
	ID             int64           `db:"id" json:"id"`
	UserID         *int64          `db:"user_id" json:"user_id,omitempty"`
	PaymentMethod  PaymentMethod   `db:"payment_method" json:"payment_method"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount       decimal.Decimal `db:"discount" json:"discount"`
	Total          decimal.Decimal `db:"total" json:"total"`
	CashReceived   decimal.Decimal `db:"cash_received" json:"cash_received"`
	Change         decimal.Decimal `db:"change_given" json:"change"`
	SaleType       SaleType        `db:"sale_type" json:"sale_type"`
	CustomerID     *int64          `db:"customer_id" json:"customer_id,omitempty"`
	CashAmount     decimal.Decimal `db:"cash_amount" json:"cash_amount"`
	CardAmount     decimal.Decimal `db:"card_amount" json:"card_amount"`
	TransferAmount decimal.Decimal `db:"transfer_amount" json:"transfer_amount"`
	Status         SaleStatus      `db:"status" json:"status"`
	ClosingID      *int64          `db:"closing_id" json:"closing_id,omitempty"`
	Notes          string          `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`

	Items []SaleItem `db:"-" json:"items,omitempty"`
}

// SaleItem is a line of a sale. ProductID is nil for free-text ("Otros") lines.
type SaleItem struct {
	ID          int64           `db:"id" json:"id"`
	SaleID      int64           `db:"sale_id" json:"sale_id"`
	ProductID   *int64          `db:"product_id" json:"product_id,omitempty"`
	Description string          `db:"description" json:"description,omitempty"`
	Quantity    int64           `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
}

type InventoryMovement struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	SaleID    int64     `db:"sale_id" json:"sale_id"`
	Quantity  int64     `db:"quantity" json:"quantity"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
