package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store"
)

// AllocationResult describes one forward allocation pass
type AllocationResult struct {
	Allocations []*models.PaymentAllocation
	Allocated   decimal.Decimal
	Unallocated decimal.Decimal
}

// AllocationEngine applies payments to scheduled installments. It is the only
// writer of installment amountPaid and paid.
type AllocationEngine struct {
	log *logrus.Logger
}

// NewAllocationEngine initializes a new allocation engine
func NewAllocationEngine(log *logrus.Logger) *AllocationEngine {
	return &AllocationEngine{log: log}
}

// Apply allocates the payment to the overview's unpaid installments, earliest
// due first. Allocations the payment already holds are reversed beforehand,
// so applying the same payment twice never double-allocates.
func (e *AllocationEngine) Apply(ctx context.Context, tx store.Tx, p *models.Payment) (*AllocationResult, error) {
	if err := e.Reverse(ctx, tx, p.ID); err != nil {
		return nil, err
	}

	res := &AllocationResult{Allocated: decimal.Zero, Unallocated: p.Amount}
	if !p.Active() || !p.Amount.IsPositive() {
		return res, nil
	}

	outstanding, err := tx.ListUnpaidInstallments(ctx, p.OverviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid installments: %w", err)
	}

	dates := map[int64]time.Time{p.ID: p.PaymentDate}
	remaining := p.Amount
	for _, inst := range outstanding {
		if !remaining.IsPositive() {
			break
		}
		capacity := inst.Remaining()
		if !capacity.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, capacity)

		alloc := &models.PaymentAllocation{
			PaymentID:     p.ID,
			OverviewID:    p.OverviewID,
			InstallmentID: inst.ID,
			Amount:        take,
		}
		if err := tx.CreateAllocation(ctx, alloc); err != nil {
			return nil, fmt.Errorf("failed to create allocation: %w", err)
		}

		inst.AmountPaid = inst.AmountPaid.Add(take)
		if err := e.syncPaid(ctx, tx, inst, 0, dates); err != nil {
			return nil, err
		}
		if err := tx.UpdateInstallment(ctx, inst); err != nil {
			return nil, fmt.Errorf("failed to update installment %d: %w", inst.ID, err)
		}

		remaining = remaining.Sub(take)
		res.Allocations = append(res.Allocations, alloc)
		res.Allocated = res.Allocated.Add(take)
	}
	res.Unallocated = remaining

	if remaining.IsPositive() {
		e.log.WithFields(logrus.Fields{
			"payment_id":  p.ID,
			"overview_id": p.OverviewID,
		}).Infof("Payment exceeds outstanding installments, %s left unallocated", remaining.StringFixed(2))
	}
	return res, nil
}

// Reverse undoes every allocation of the payment and deletes the allocation
// rows. An allocation whose installment is gone, or that would drive its
// amountPaid negative, fails with models.ErrConsistency.
func (e *AllocationEngine) Reverse(ctx context.Context, tx store.Tx, paymentID int64) error {
	if paymentID == 0 {
		return nil
	}
	allocs, err := tx.ListAllocationsByPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to list allocations of payment %d: %w", paymentID, err)
	}
	if len(allocs) == 0 {
		return nil
	}

	dates := map[int64]time.Time{}
	for _, a := range allocs {
		inst, err := tx.GetInstallment(ctx, a.InstallmentID)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("allocation %d targets missing installment %d: %w", a.ID, a.InstallmentID, models.ErrConsistency)
		}
		if err != nil {
			return fmt.Errorf("failed to load installment %d: %w", a.InstallmentID, err)
		}

		paid := inst.AmountPaid.Sub(a.Amount)
		if paid.IsNegative() {
			return fmt.Errorf("reversing allocation %d leaves installment %d at %s: %w", a.ID, inst.ID, paid, models.ErrConsistency)
		}
		inst.AmountPaid = paid
		if err := e.syncPaid(ctx, tx, inst, paymentID, dates); err != nil {
			return err
		}
		if err := tx.UpdateInstallment(ctx, inst); err != nil {
			return fmt.Errorf("failed to update installment %d: %w", inst.ID, err)
		}
	}

	if err := tx.DeleteAllocationsByPayment(ctx, paymentID); err != nil {
		return fmt.Errorf("failed to delete allocations of payment %d: %w", paymentID, err)
	}
	return nil
}

// syncPaid recomputes the paid flag. A paid installment is dated with the
// latest payment date among the payments allocated to it, skipping the one
// being reversed, so the date does not depend on the order payments were
// applied in. dates caches payment dates by id.
func (e *AllocationEngine) syncPaid(ctx context.Context, tx store.Tx, inst *models.Installment, skip int64, dates map[int64]time.Time) error {
	inst.Paid = inst.AmountPaid.GreaterThanOrEqual(inst.Amount)
	inst.PaymentDate = nil
	if !inst.Paid {
		return nil
	}

	allocs, err := tx.ListAllocationsByOverview(ctx, inst.OverviewID)
	if err != nil {
		return fmt.Errorf("failed to list allocations of overview %d: %w", inst.OverviewID, err)
	}
	for _, a := range allocs {
		if a.InstallmentID != inst.ID || a.PaymentID == skip {
			continue
		}
		d, ok := dates[a.PaymentID]
		if !ok {
			p, err := tx.GetPayment(ctx, a.PaymentID)
			if err != nil {
				return fmt.Errorf("failed to load payment %d: %w", a.PaymentID, err)
			}
			d = p.PaymentDate
			dates[a.PaymentID] = d
		}
		if inst.PaymentDate == nil || d.After(*inst.PaymentDate) {
			latest := d
			inst.PaymentDate = &latest
		}
	}
	return nil
}
