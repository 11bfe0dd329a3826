package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store"
)

// OverviewAggregator keeps the overview's amountPaid and isPaid in line with
// its payments.
type OverviewAggregator struct{}

// NewOverviewAggregator initializes a new aggregator
func NewOverviewAggregator() *OverviewAggregator {
	return &OverviewAggregator{}
}

// Recompute sets amountPaid to the sum of the overview's active payments and
// isPaid to amountPaid >= net, then persists the overview.
func (a *OverviewAggregator) Recompute(ctx context.Context, tx store.Tx, o *models.PaymentOverview) error {
	payments, err := tx.ListPayments(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("failed to list payments of overview %d: %w", o.ID, err)
	}

	total := decimal.Zero
	for _, p := range payments {
		if p.Active() {
			total = total.Add(p.Amount)
		}
	}
	o.AmountPaid = total
	o.IsPaid = total.GreaterThanOrEqual(o.Net)

	if err := tx.UpdateOverview(ctx, o); err != nil {
		return fmt.Errorf("failed to update overview %d: %w", o.ID, err)
	}
	return nil
}
