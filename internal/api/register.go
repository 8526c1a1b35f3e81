package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"joyeria/pos/domain"
	"joyeria/pos/internal/ledger"
)

// Receivables

func (h *Handler) listReceivables(w http.ResponseWriter, r *http.Request) {
	openOnly := false
	if raw := r.URL.Query().Get("open"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "open must be true or false")
			return
		}
		openOnly = v
	}
	recs, err := h.ledger.ListReceivables(r.Context(), openOnly)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (h *Handler) getReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid receivable id")
		return
	}
	rec, err := h.ledger.GetReceivable(r.Context(), id)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

type abonoRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=Efectivo Tarjeta Transferencia"`
	Notes         string          `json:"notes" validate:"max=500"`
}

func (h *Handler) createAbono(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid receivable id")
		return
	}
	var req abonoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	abono, pending, err := h.ledger.RecordAbono(r.Context(), ledger.AbonoInput{
		ReceivableID:  id,
		Amount:        req.Amount,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
		UserID:        currentUser(r),
	})
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"abono_id":            abono.ID,
		"new_pending_balance": pending,
		"abono":               abono,
	})
}

// Register

type extraIncomeRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=Efectivo Tarjeta Transferencia"`
	Description   string          `json:"description" validate:"required,max=200"`
}

func (h *Handler) createExtraIncome(w http.ResponseWriter, r *http.Request) {
	var req extraIncomeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	income, err := h.ledger.RecordExtraIncome(r.Context(), ledger.ExtraIncomeInput{
		Amount:        req.Amount,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Description:   req.Description,
		UserID:        currentUser(r),
	})
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, income)
}

func (h *Handler) daySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.ledger.DaySummary(r.Context())
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

type closeRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

func (h *Handler) closeRegister(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	// The body is optional; an empty one, chunked or not, closes without notes.
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	closing, err := h.ledger.CloseRegister(r.Context(), ledger.CloseInput{UserID: currentUser(r), Notes: req.Notes})
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, closing)
}

func (h *Handler) listClosings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	closings, err := h.ledger.ListClosings(r.Context(), limit)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, closings)
}

func (h *Handler) getClosing(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid closing id")
		return
	}
	closing, err := h.ledger.GetClosing(r.Context(), id)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, closing)
}
