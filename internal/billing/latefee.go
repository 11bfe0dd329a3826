package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store"
)

var hundred = decimal.NewFromInt(100)

// LateFeeCalculator decides lateness and keeps late fees reflected in the
// overview's net. lateFeeAddedToNet is the only record of whether a fee is
// currently part of net.
type LateFeeCalculator struct{}

// NewLateFeeCalculator initializes a new late fee calculator
func NewLateFeeCalculator() *LateFeeCalculator {
	return &LateFeeCalculator{}
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsLate reports whether the installment is unpaid and its due day is before
// the day of now.
func IsLate(inst *models.Installment, now time.Time) bool {
	return !inst.Paid && day(inst.DueDate).Before(day(now))
}

// FeeFor returns the late fee charged per installment of the overview: the
// flat fee when set, otherwise the percentage of the total sale.
func (c *LateFeeCalculator) FeeFor(o *models.PaymentOverview) decimal.NullDecimal {
	if o.LateFeeFlat.IsPositive() {
		return decimal.NewNullDecimal(o.LateFeeFlat.Round(2))
	}
	if o.LateFeePercent.IsPositive() {
		return decimal.NewNullDecimal(o.TotalSale.Mul(o.LateFeePercent).Div(hundred).Round(2))
	}
	return decimal.NullDecimal{}
}

// SetWaiver changes the installment's waiver and adjusts net accordingly.
// Waiving removes a fee already added to net; lifting a waiver adds the fee
// if the installment is late. It returns whether net changed. The caller
// persists both rows.
func (c *LateFeeCalculator) SetWaiver(inst *models.Installment, o *models.PaymentOverview, waived bool, now time.Time) bool {
	inst.LateFeeWaived = waived
	if !inst.LateFee.Valid {
		return false
	}
	fee := inst.LateFee.Decimal

	if waived {
		if !inst.LateFeeAddedToNet {
			return false
		}
		o.Net = o.Net.Sub(fee)
		inst.LateFeeAddedToNet = false
		return true
	}

	if inst.LateFeeAddedToNet || !IsLate(inst, now) {
		return false
	}
	o.Net = o.Net.Add(fee)
	inst.LateFeeAddedToNet = true
	return true
}

// Assess adds the fee of every late, unwaived installment of the overview
// that has not been charged yet. It returns the installments it charged.
func (c *LateFeeCalculator) Assess(ctx context.Context, tx store.Tx, o *models.PaymentOverview, now time.Time) ([]*models.Installment, error) {
	items, err := tx.ListInstallments(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments of overview %d: %w", o.ID, err)
	}

	var charged []*models.Installment
	for _, inst := range items {
		if inst.LateFeeWaived || inst.LateFeeAddedToNet || !inst.LateFee.Valid || !IsLate(inst, now) {
			continue
		}
		o.Net = o.Net.Add(inst.LateFee.Decimal)
		inst.LateFeeAddedToNet = true
		if err := tx.UpdateInstallment(ctx, inst); err != nil {
			return nil, fmt.Errorf("failed to update installment %d: %w", inst.ID, err)
		}
		charged = append(charged, inst)
	}
	return charged, nil
}

// ChargedFees returns the total of the installments' fees currently in net
func ChargedFees(items []*models.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range items {
		if inst.LateFeeAddedToNet && inst.LateFee.Valid {
			total = total.Add(inst.LateFee.Decimal)
		}
	}
	return total
}

// CarryOver moves the late-fee state of replaced installments onto the fresh
// ones of the same period. A waiver always carries over. A fee that was in
// net is charged again only if the fresh installment is late and has a fee.
// It returns the total now charged on the fresh installments; the caller adds
// it to the new principal.
func (c *LateFeeCalculator) CarryOver(replaced, fresh []*models.Installment, now time.Time) decimal.Decimal {
	byPeriod := make(map[models.Period]*models.Installment, len(replaced))
	for _, inst := range replaced {
		byPeriod[models.Period{Month: inst.Month, Year: inst.Year}] = inst
	}

	total := decimal.Zero
	for _, inst := range fresh {
		prev, ok := byPeriod[models.Period{Month: inst.Month, Year: inst.Year}]
		if !ok {
			continue
		}
		inst.LateFeeWaived = prev.LateFeeWaived
		if prev.LateFeeAddedToNet && !inst.LateFeeWaived && inst.LateFee.Valid && IsLate(inst, now) {
			inst.LateFeeAddedToNet = true
			total = total.Add(inst.LateFee.Decimal)
		}
	}
	return total
}

// View converts the installment to its read model as of now
func View(inst *models.Installment, now time.Time) models.InstallmentView {
	return models.InstallmentView{
		ID:            inst.ID,
		DueDate:       inst.DueDate,
		Amount:        inst.Amount,
		AmountPaid:    inst.AmountPaid,
		IsPaid:        inst.Paid,
		IsLate:        IsLate(inst, now),
		PaymentDate:   inst.PaymentDate,
		LateFee:       inst.LateFee,
		LateFeeWaived: inst.LateFeeWaived,
	}
}
