package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID    int64           `db:"id" json:"id"`
	SKU   string          `db:"sku" json:"sku"`
	Name  string          `db:"name" json:"name"`
	Price decimal.Decimal `db:"price" json:"price"`
	Stock int64           `db:"stock" json:"stock"`
}

type Customer struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Phone string `db:"phone" json:"phone,omitempty"`
	Email string `db:"email" json:"email,omitempty"`
}
