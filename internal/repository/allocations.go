package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/calendar-ads/internal/models"
)

// CreateAllocation inserts a payment allocation
func (t *txRepo) CreateAllocation(ctx context.Context, a *models.PaymentAllocation) error {
	query := `
		INSERT INTO billing.payment_allocations (payment_id, overview_id, installment_id, amount, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := t.q.QueryRowContext(ctx, query, a.PaymentID, a.OverviewID, a.InstallmentID, a.Amount).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

func (t *txRepo) queryAllocations(ctx context.Context, where string, arg int64) ([]*models.PaymentAllocation, error) {
	query := `
		SELECT id, payment_id, overview_id, installment_id, amount, created_at
		FROM billing.payment_allocations
		WHERE ` + where + ` = $1
		ORDER BY id`
	rows, err := t.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	var out []*models.PaymentAllocation
	for rows.Next() {
		a := &models.PaymentAllocation{}
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.OverviewID, &a.InstallmentID, &a.Amount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	return out, nil
}

// ListAllocationsByPayment returns the allocations of a payment
func (t *txRepo) ListAllocationsByPayment(ctx context.Context, paymentID int64) ([]*models.PaymentAllocation, error) {
	return t.queryAllocations(ctx, "payment_id", paymentID)
}

// ListAllocationsByOverview returns the allocations of an overview
func (t *txRepo) ListAllocationsByOverview(ctx context.Context, overviewID int64) ([]*models.PaymentAllocation, error) {
	return t.queryAllocations(ctx, "overview_id", overviewID)
}

// DeleteAllocationsByPayment removes the allocations of a payment
func (t *txRepo) DeleteAllocationsByPayment(ctx context.Context, paymentID int64) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM billing.payment_allocations WHERE payment_id = $1`, paymentID); err != nil {
		return fmt.Errorf("failed to delete allocations: %w", err)
	}
	return nil
}
