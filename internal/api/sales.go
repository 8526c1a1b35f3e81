package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"joyeria/pos/domain"
	"joyeria/pos/internal/ledger"
)

type saleItemRequest struct {
	ProductID   *int64          `json:"product_id" validate:"omitempty,gt=0"`
	Description string          `json:"description" validate:"required_without=ProductID,excluded_with=ProductID,max=200"`
	Quantity    int64           `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type saleRequest struct {
	Items          []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod  string            `json:"payment_method" validate:"omitempty,oneof=Efectivo Tarjeta Transferencia Mixto Credito"`
	Discount       decimal.Decimal   `json:"discount"`
	CashReceived   decimal.Decimal   `json:"cash_received"`
	SaleType       string            `json:"sale_type" validate:"omitempty,oneof=Contado Credito"`
	CustomerID     *int64            `json:"customer_id" validate:"omitempty,gt=0"`
	CashAmount     decimal.Decimal   `json:"cash_amount"`
	CardAmount     decimal.Decimal   `json:"card_amount"`
	TransferAmount decimal.Decimal   `json:"transfer_amount"`
	DueDate        string            `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes          string            `json:"notes" validate:"max=500"`
}

func (req saleRequest) input(userID *int64) (ledger.SaleInput, error) {
	in := ledger.SaleInput{
		UserID:         userID,
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		Discount:       req.Discount,
		CashReceived:   req.CashReceived,
		SaleType:       domain.SaleType(req.SaleType),
		CustomerID:     req.CustomerID,
		CashAmount:     req.CashAmount,
		CardAmount:     req.CardAmount,
		TransferAmount: req.TransferAmount,
		Notes:          req.Notes,
	}
	if req.DueDate != "" {
		due, err := time.Parse(time.DateOnly, req.DueDate)
		if err != nil {
			return in, err
		}
		in.DueDate = &due
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, ledger.ItemInput{
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return in, nil
}

type saleResponse struct {
	SaleID       int64              `json:"sale_id"`
	Total        decimal.Decimal    `json:"total"`
	Change       decimal.Decimal    `json:"change"`
	ReceivableID int64              `json:"receivable_id,omitempty"`
	Sale         *domain.Sale       `json:"sale"`
	Receivable   *domain.Receivable `json:"receivable,omitempty"`
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input(currentUser(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, "due_date must be in YYYY-MM-DD format")
		return
	}

	if in.SaleType == domain.SaleTypeCredit {
		sale, rec, err := h.ledger.RecordCreditSale(r.Context(), in)
		if err != nil {
			respondLedgerError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, saleResponse{
			SaleID:       sale.ID,
			Total:        sale.Total,
			Change:       sale.Change,
			ReceivableID: rec.ID,
			Sale:         sale,
			Receivable:   rec,
		})
		return
	}

	sale, err := h.ledger.RecordSale(r.Context(), in)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, saleResponse{SaleID: sale.ID, Total: sale.Total, Change: sale.Change, Sale: sale})
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.SaleFilter{
		Status:   domain.SaleStatus(q.Get("status")),
		SaleType: domain.SaleType(q.Get("sale_type")),
	}
	switch filter.Status {
	case "", domain.SaleStatusPendingClose, domain.SaleStatusArchived:
	default:
		respondError(w, http.StatusBadRequest, "status must be PENDING_CLOSE or ARCHIVED")
		return
	}
	switch filter.SaleType {
	case "", domain.SaleTypeCash, domain.SaleTypeCredit:
	default:
		respondError(w, http.StatusBadRequest, "sale_type must be Contado or Credito")
		return
	}
	if raw := q.Get("closing_id"); raw != "" {
		id, err := queryInt(r, "closing_id")
		if err != nil || id == 0 {
			respondError(w, http.StatusBadRequest, "invalid closing_id")
			return
		}
		closingID := int64(id)
		filter.ClosingID = &closingID
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = limit

	sales, err := h.ledger.ListSales(r.Context(), filter)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := h.ledger.GetSale(r.Context(), id)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}
