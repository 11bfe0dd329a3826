package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store/memory"
)

const owner = int64(1)

func newTestService(t *testing.T, now time.Time) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewService(memory.New(), log)
	svc.now = func() time.Time { return now }
	return svc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func periods(n int) []models.Period {
	out := make([]models.Period, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Period{Month: time.Month(i + 1), Year: 2025})
	}
	return out
}

// planned creates an overview with an equal monthly schedule starting
// January 2025, due on the 10th.
func planned(t *testing.T, svc *Service, net string, months int, lateFee string) *models.PaymentOverview {
	t.Helper()
	ctx := context.Background()
	o, err := svc.CreateOverview(ctx, owner, models.OverviewInput{
		PurchaseID:   10,
		ContactID:    20,
		BillingEmail: "buyer@example.com",
		TotalSale:    dec(net),
		Net:          dec(net),
		LateFeeFlat:  dec(lateFee),
	})
	require.NoError(t, err)

	_, err = svc.GenerateSchedule(ctx, owner, models.ScheduleRequest{
		OverviewID:    o.ID,
		Periods:       periods(months),
		DueDayOfMonth: 10,
		SplitEqually:  true,
	})
	require.NoError(t, err)
	return o
}

func paymentInput(o *models.PaymentOverview, amount string, at time.Time) models.PaymentInput {
	return models.PaymentInput{
		Amount:      dec(amount),
		Method:      "check",
		CheckNumber: "1001",
		PaymentDate: at,
		ContactID:   o.ContactID,
		PurchaseID:  o.PurchaseID,
		OverviewID:  o.ID,
	}
}

var jan5 = time.Date(2025, time.January, 5, 12, 0, 0, 0, time.UTC)

func TestCreatePayment(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "1200", 12, "0")

	p, err := svc.CreatePayment(ctx, owner, paymentInput(o, "250", jan5))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusActive, p.Status)

	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 12)
	assert.True(t, items[0].IsPaid)
	assert.Equal(t, jan5, *items[0].PaymentDate)
	assert.Equal(t, "100.00", items[1].AmountPaid.StringFixed(2))
	assert.True(t, items[1].IsPaid)
	assert.Equal(t, "50.00", items[2].AmountPaid.StringFixed(2))
	assert.False(t, items[2].IsPaid)

	view, err := svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "250.00", view.AmountPaid.StringFixed(2))
	assert.False(t, view.IsPaid)
	require.NotNil(t, view.LastPaymentID)
	assert.Equal(t, p.ID, *view.LastPaymentID)
}

func TestCreatePayment_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "100", 1, "0")

	in := paymentInput(o, "10", jan5)
	in.ContactID = 0
	_, err := svc.CreatePayment(ctx, owner, in)
	assert.ErrorIs(t, err, models.ErrValidation)

	in = paymentInput(o, "0", jan5)
	_, err = svc.CreatePayment(ctx, owner, in)
	assert.ErrorIs(t, err, models.ErrValidation)

	in = paymentInput(o, "10", jan5)
	in.OverviewID = 0
	_, err = svc.CreatePayment(ctx, owner, in)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreatePayment_DefaultsPaymentDate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "100", 1, "0")

	p, err := svc.CreatePayment(ctx, owner, paymentInput(o, "100", time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, jan5, p.PaymentDate)
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "100", 1, "0")
	p, err := svc.CreatePayment(ctx, owner, paymentInput(o, "40", jan5))
	require.NoError(t, err)

	stranger := int64(2)
	_, err = svc.GetOverview(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.ListInstallments(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.CreatePayment(ctx, stranger, paymentInput(o, "10", jan5))
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.UpdatePayment(ctx, stranger, p.ID, paymentInput(o, "10", jan5))
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.DeletePayment(ctx, stranger, p.ID), models.ErrNotFound)

	_, err = svc.GetOverview(ctx, owner, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.DeletePayment(ctx, owner, 999), models.ErrNotFound)
}

func TestGenerateSchedule_RegeneratesBeforePayments(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "100.00", 3, "0")

	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "33.34", items[2].Amount.StringFixed(2))

	views, err := svc.GenerateSchedule(ctx, owner, models.ScheduleRequest{
		OverviewID:        o.ID,
		Periods:           periods(2),
		UseLastDayOfMonth: true,
		CustomAmounts: []models.PeriodAmount{
			{Month: time.January, Year: 2025, Amount: dec("60")},
			{Month: time.February, Year: 2025, Amount: dec("40")},
		},
	})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, 31, views[0].DueDate.Day())

	items, err = svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGenerateSchedule_RefusedAfterPayments(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "300", 3, "0")
	_, err := svc.CreatePayment(ctx, owner, paymentInput(o, "50", jan5))
	require.NoError(t, err)

	_, err = svc.GenerateSchedule(ctx, owner, models.ScheduleRequest{
		OverviewID:    o.ID,
		Periods:       periods(6),
		DueDayOfMonth: 1,
		SplitEqually:  true,
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestGenerateSchedule_CustomMismatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "100", 1, "0")

	_, err := svc.GenerateSchedule(ctx, owner, models.ScheduleRequest{
		OverviewID:    o.ID,
		Periods:       periods(1),
		DueDayOfMonth: 1,
		CustomAmounts: []models.PeriodAmount{{Month: time.January, Year: 2025, Amount: dec("90")}},
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdatePayment_ReallocatesSmallerAmount(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "500", 1, "0")
	p, err := svc.CreatePayment(ctx, owner, paymentInput(o, "500", jan5))
	require.NoError(t, err)

	view, err := svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.True(t, view.IsPaid)

	_, err = svc.UpdatePayment(ctx, owner, p.ID, paymentInput(o, "200", jan5))
	require.NoError(t, err)

	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", items[0].AmountPaid.StringFixed(2))
	assert.False(t, items[0].IsPaid)
	assert.Nil(t, items[0].PaymentDate)

	view, err = svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", view.AmountPaid.StringFixed(2))
	assert.False(t, view.IsPaid)
}

func TestUpdatePayment_CannotMoveOverview(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	first := planned(t, svc, "100", 1, "0")
	second := planned(t, svc, "100", 1, "0")
	p, err := svc.CreatePayment(ctx, owner, paymentInput(first, "50", jan5))
	require.NoError(t, err)

	_, err = svc.UpdatePayment(ctx, owner, p.ID, paymentInput(second, "50", jan5))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDeletePayment(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "300", 3, "0")
	_, err := svc.CreatePayment(ctx, owner, paymentInput(o, "150", jan5))
	require.NoError(t, err)
	last, err := svc.CreatePayment(ctx, owner, paymentInput(o, "100", jan5))
	require.NoError(t, err)

	require.NoError(t, svc.DeletePayment(ctx, owner, last.ID))

	view, err := svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", view.AmountPaid.StringFixed(2))
	assert.Nil(t, view.LastPaymentID)

	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.True(t, items[0].IsPaid)
	assert.Equal(t, "50.00", items[1].AmountPaid.StringFixed(2))
	assert.True(t, items[2].AmountPaid.IsZero())
}

func TestCancelPayment(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "200", 2, "0")
	p, err := svc.CreatePayment(ctx, owner, paymentInput(o, "150", jan5))
	require.NoError(t, err)

	require.NoError(t, svc.CancelPayment(ctx, p.ID))
	require.NoError(t, svc.CancelPayment(ctx, p.ID))

	view, err := svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.True(t, view.AmountPaid.IsZero())
	assert.Nil(t, view.LastPaymentID)

	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	for _, inst := range items {
		assert.True(t, inst.AmountPaid.IsZero())
		assert.False(t, inst.IsPaid)
	}

	_, err = svc.UpdatePayment(ctx, owner, p.ID, paymentInput(o, "150", jan5))
	assert.ErrorIs(t, err, models.ErrValidation)

	// A cancelled payment does not block regeneration.
	_, err = svc.GenerateSchedule(ctx, owner, models.ScheduleRequest{
		OverviewID: o.ID, Periods: periods(4), DueDayOfMonth: 1, SplitEqually: true,
	})
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.CancelPayment(ctx, 999), models.ErrNotFound)
}

func TestLateFees_AssessAndWaive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "1200", 12, "25")

	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.False(t, items[0].IsLate)
	require.True(t, items[0].LateFee.Valid)
	assert.Equal(t, "25.00", items[0].LateFee.Decimal.StringFixed(2))

	svc.now = func() time.Time { return time.Date(2025, time.January, 11, 9, 0, 0, 0, time.UTC) }

	view, err := svc.AssessLateFees(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1225.00", view.Net.StringFixed(2))

	view, err = svc.AssessLateFees(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1225.00", view.Net.StringFixed(2))

	inst, err := svc.SetLateFeeWaiver(ctx, owner, items[0].ID, true)
	require.NoError(t, err)
	assert.True(t, inst.LateFeeWaived)
	assert.True(t, inst.IsLate)
	overview, err := svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200.00", overview.Net.StringFixed(2))

	_, err = svc.SetLateFeeWaiver(ctx, owner, items[0].ID, true)
	require.NoError(t, err)
	overview, err = svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200.00", overview.Net.StringFixed(2))

	_, err = svc.SetLateFeeWaiver(ctx, owner, items[0].ID, false)
	require.NoError(t, err)
	overview, err = svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1225.00", overview.Net.StringFixed(2))

	_, err = svc.SetLateFeeWaiver(ctx, 2, items[0].ID, true)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGenerateSchedule_KeepsChargedLateFees(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "1200", 12, "25")
	svc.now = func() time.Time { return time.Date(2025, time.January, 11, 9, 0, 0, 0, time.UTC) }

	view, err := svc.AssessLateFees(ctx, owner, o.ID)
	require.NoError(t, err)
	require.Equal(t, "1225.00", view.Net.StringFixed(2))

	_, err = svc.GenerateSchedule(ctx, owner, models.ScheduleRequest{
		OverviewID:    o.ID,
		Periods:       periods(12),
		DueDayOfMonth: 10,
		SplitEqually:  true,
	})
	require.NoError(t, err)

	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 12)
	for _, inst := range items {
		assert.Equal(t, "100.00", inst.Amount.StringFixed(2))
	}
	overview, err := svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1225.00", overview.Net.StringFixed(2))

	view, err = svc.AssessLateFees(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1225.00", view.Net.StringFixed(2))

	_, err = svc.SetLateFeeWaiver(ctx, owner, items[0].ID, true)
	require.NoError(t, err)
	overview, err = svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200.00", overview.Net.StringFixed(2))
}

func TestGenerateSchedule_CarriesWaiverAndDropsFeesOfRemovedPeriods(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "1200", 12, "25")
	svc.now = func() time.Time { return time.Date(2025, time.February, 11, 9, 0, 0, 0, time.UTC) }

	_, err := svc.AssessLateFees(ctx, owner, o.ID)
	require.NoError(t, err)
	items, err := svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	_, err = svc.SetLateFeeWaiver(ctx, owner, items[1].ID, true)
	require.NoError(t, err)
	overview, err := svc.GetOverview(ctx, owner, o.ID)
	require.NoError(t, err)
	require.Equal(t, "1225.00", overview.Net.StringFixed(2))

	// January goes away, February stays waived.
	_, err = svc.GenerateSchedule(ctx, owner, models.ScheduleRequest{
		OverviewID:    o.ID,
		Periods:       periods(12)[1:],
		DueDayOfMonth: 10,
		SplitEqually:  true,
	})
	require.NoError(t, err)

	items, err = svc.ListInstallments(ctx, owner, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 11)
	assert.True(t, items[0].LateFeeWaived)
	assert.True(t, items[0].IsLate)

	view, err := svc.AssessLateFees(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200.00", view.Net.StringFixed(2))
}

func TestGenerateSchedule_BalanceLastPeriod(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, jan5)
	o := planned(t, svc, "1000", 1, "0")

	views, err := svc.GenerateSchedule(ctx, owner, models.ScheduleRequest{
		OverviewID:        o.ID,
		Periods:           periods(3),
		DueDayOfMonth:     1,
		BalanceLastPeriod: true,
		CustomAmounts: []models.PeriodAmount{
			{Month: time.January, Year: 2025, Amount: dec("400")},
			{Month: time.February, Year: 2025, Amount: dec("350")},
		},
	})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "250.00", views[2].Amount.StringFixed(2))
}

func TestCreateOverview_Validation(t *testing.T) {
	svc := newTestService(t, jan5)
	_, err := svc.CreateOverview(context.Background(), owner, models.OverviewInput{ContactID: 1, Net: dec("10")})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.CreateOverview(context.Background(), owner, models.OverviewInput{PurchaseID: 1, ContactID: 1, Net: dec("-1")})
	assert.ErrorIs(t, err, models.ErrValidation)
}
