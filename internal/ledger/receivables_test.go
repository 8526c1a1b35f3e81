package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joyeria/pos/domain"
)

func TestRecordCreditSale(t *testing.T) {
	f := newFixture(t)

	sale, rec, err := f.svc.RecordCreditSale(f.ctx, SaleInput{
		Items:      []ItemInput{{ProductID: &f.ring, Quantity: 2}},
		Discount:   dec("1000"),
		CustomerID: &f.customer,
		SaleType:   domain.SaleTypeCredit,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SaleStatusArchived, sale.Status)
	assert.Equal(t, domain.SaleTypeCredit, sale.SaleType)
	assert.Equal(t, domain.PaymentCredit, sale.PaymentMethod)
	assert.Nil(t, sale.ClosingID)
	assertDec(t, "9000", sale.Total)
	assert.True(t, sale.CashAmount.IsZero())

	assert.Equal(t, sale.ID, rec.SaleID)
	assert.Equal(t, f.customer, rec.CustomerID)
	assertDec(t, "9000", rec.PendingBalance)
	assert.Equal(t, domain.ReceivablePending, rec.Status)
	assert.True(t, rec.DueDate.Equal(testNow.Add(DefaultCreditTerm)))

	assert.Equal(t, int64(3), f.stock(t, f.ring), "credit sales take stock immediately")
	assert.Equal(t, 0, f.count(t, `SELECT COUNT(*) FROM sales WHERE status = $1`, domain.SaleStatusPendingClose))
}

func TestRecordCreditSale_Validation(t *testing.T) {
	f := newFixture(t)
	items := []ItemInput{{ProductID: &f.ring, Quantity: 1}}
	yesterday := testNow.Add(-24 * time.Hour)

	tests := []struct {
		name string
		in   SaleInput
	}{
		{"missing customer", SaleInput{Items: items}},
		{"unknown customer", SaleInput{Items: items, CustomerID: ptr(int64(404))}},
		{"no items", SaleInput{CustomerID: &f.customer}},
		{"cash received", SaleInput{Items: items, CustomerID: &f.customer, CashReceived: dec("100")}},
		{"due date in the past", SaleInput{Items: items, CustomerID: &f.customer, DueDate: &yesterday}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.RecordCreditSale(f.ctx, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Equal(t, 0, f.count(t, `SELECT COUNT(*) FROM receivables`))
	assert.Equal(t, int64(5), f.stock(t, f.ring))
}

func TestRecordCreditSale_DueDateToday(t *testing.T) {
	f := newFixture(t)
	earlierToday := startOfDay(testNow).Add(time.Hour)

	_, rec, err := f.svc.RecordCreditSale(f.ctx, SaleInput{
		Items:      []ItemInput{{Description: "Reloj", Quantity: 1, UnitPrice: dec("700")}},
		CustomerID: &f.customer,
		DueDate:    &earlierToday,
	})
	require.NoError(t, err)
	assert.True(t, rec.DueDate.Equal(earlierToday))
}

func TestRecordCreditSale_DueDateUsesClockDay(t *testing.T) {
	f := newFixture(t)
	items := []ItemInput{{Description: "Reloj", Quantity: 1, UnitPrice: dec("700")}}

	// 23:30 on the 14th at UTC-6 is already the 15th in UTC.
	f.now = time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("CST", -6*60*60))
	today := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	_, _, err := f.svc.RecordCreditSale(f.ctx, SaleInput{Items: items, CustomerID: &f.customer, DueDate: &today})
	assert.NoError(t, err, "a due date of the register's current day is not in the past")

	// 00:30 on the 14th at UTC+9 is still the 13th in UTC.
	f.now = time.Date(2026, 3, 14, 0, 30, 0, 0, time.FixedZone("JST", 9*60*60))
	yesterday := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	_, _, err = f.svc.RecordCreditSale(f.ctx, SaleInput{Items: items, CustomerID: &f.customer, DueDate: &yesterday})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordAbono(t *testing.T) {
	f := newFixture(t)
	_, rec := f.creditSale(t, "1000")

	abono, pending, err := f.svc.RecordAbono(f.ctx, AbonoInput{
		ReceivableID:  rec.ID,
		Amount:        dec("400"),
		PaymentMethod: domain.PaymentCash,
		Notes:         " primer abono ",
	})
	require.NoError(t, err)
	assertDec(t, "600", pending)
	assert.Equal(t, "primer abono", abono.Notes)
	assert.Nil(t, abono.ClosingID)

	got, err := f.svc.GetReceivable(f.ctx, rec.ID)
	require.NoError(t, err)
	assertDec(t, "600", got.PendingBalance)
	assert.Equal(t, domain.ReceivablePartial, got.Status)
	require.Len(t, got.Abonos, 1)
	assert.Equal(t, abono.ID, got.Abonos[0].ID)

	_, pending, err = f.svc.RecordAbono(f.ctx, AbonoInput{ReceivableID: rec.ID, Amount: dec("600"), PaymentMethod: domain.PaymentTransfer})
	require.NoError(t, err)
	assert.True(t, pending.IsZero())

	got, err = f.svc.GetReceivable(f.ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceivablePaid, got.Status)
	assert.Len(t, got.Abonos, 2)
}

func TestRecordAbono_PendingNeverNegative(t *testing.T) {
	f := newFixture(t)
	_, rec := f.creditSale(t, "1000")

	paid := decimal.Zero
	for _, amount := range []string{"250.50", "100", "2000", "649.50", "0.01"} {
		_, pending, err := f.svc.RecordAbono(f.ctx, AbonoInput{ReceivableID: rec.ID, Amount: dec(amount), PaymentMethod: domain.PaymentCard})
		if err != nil {
			assert.ErrorIs(t, err, ErrOverpayment)
			continue
		}
		paid = paid.Add(dec(amount))
		assert.True(t, dec("1000").Sub(paid).Equal(pending))
		assert.False(t, pending.IsNegative())
	}

	got, err := f.svc.GetReceivable(f.ctx, rec.ID)
	require.NoError(t, err)
	assertDec(t, "0", got.PendingBalance)

	var sum decimal.Decimal
	for _, a := range got.Abonos {
		sum = sum.Add(a.Amount)
	}
	assertDec(t, "1000", sum)
}

func TestRecordAbono_Overpayment(t *testing.T) {
	f := newFixture(t)
	_, rec := f.creditSale(t, "300")
	_, _, err := f.svc.RecordAbono(f.ctx, AbonoInput{ReceivableID: rec.ID, Amount: dec("200"), PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)

	_, _, err = f.svc.RecordAbono(f.ctx, AbonoInput{ReceivableID: rec.ID, Amount: dec("150"), PaymentMethod: domain.PaymentCash})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverpayment)
	assert.Contains(t, err.Error(), "exceeds pending balance 100")

	got, err := f.svc.GetReceivable(f.ctx, rec.ID)
	require.NoError(t, err)
	assertDec(t, "100", got.PendingBalance)
	assert.Len(t, got.Abonos, 1)
}

func TestRecordAbono_Validation(t *testing.T) {
	f := newFixture(t)
	_, rec := f.creditSale(t, "300")

	tests := []struct {
		name string
		in   AbonoInput
		kind error
	}{
		{"zero amount", AbonoInput{ReceivableID: rec.ID, PaymentMethod: domain.PaymentCash}, ErrValidation},
		{"negative amount", AbonoInput{ReceivableID: rec.ID, Amount: dec("-5"), PaymentMethod: domain.PaymentCash}, ErrValidation},
		{"mixed method", AbonoInput{ReceivableID: rec.ID, Amount: dec("5"), PaymentMethod: domain.PaymentMixed}, ErrValidation},
		{"unknown receivable", AbonoInput{ReceivableID: 999, Amount: dec("5"), PaymentMethod: domain.PaymentCash}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.RecordAbono(f.ctx, tt.in)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Equal(t, 0, f.count(t, `SELECT COUNT(*) FROM abonos`))
}

func TestListReceivables(t *testing.T) {
	f := newFixture(t)
	_, open := f.creditSale(t, "500")
	_, settled := f.creditSale(t, "200")
	_, _, err := f.svc.RecordAbono(f.ctx, AbonoInput{ReceivableID: settled.ID, Amount: dec("200"), PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)

	all, err := f.svc.ListReceivables(f.ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.svc.ListReceivables(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, open.ID, pending[0].ID)
}

func TestGetReceivable_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetReceivable(f.ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, domain.ReceivablePending, domain.StatusFor(dec("10"), dec("10")))
	assert.Equal(t, domain.ReceivablePartial, domain.StatusFor(dec("10"), dec("4")))
	assert.Equal(t, domain.ReceivablePaid, domain.StatusFor(dec("10"), decimal.Zero))
}
