package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/calendar-ads/internal/models"
)

const overviewColumns = `o.id, o.user_id, o.purchase_id, o.contact_id, o.billing_email, o.total_sale, o.net,
	o.amount_paid, o.is_paid, o.last_payment_id, o.due_day_of_month, o.use_last_day_of_month,
	o.split_equally, o.late_fee_flat, o.late_fee_percent, o.created_at, o.updated_at`

type overviewRow struct {
	o           models.PaymentOverview
	lastPayment sql.NullInt64
}

func (r *overviewRow) dest() []any {
	return []any{
		&r.o.ID, &r.o.UserID, &r.o.PurchaseID, &r.o.ContactID, &r.o.BillingEmail, &r.o.TotalSale, &r.o.Net,
		&r.o.AmountPaid, &r.o.IsPaid, &r.lastPayment, &r.o.DueDayOfMonth, &r.o.UseLastDayOfMonth,
		&r.o.SplitEqually, &r.o.LateFeeFlat, &r.o.LateFeePercent, &r.o.CreatedAt, &r.o.UpdatedAt,
	}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (r *overviewRow) model() *models.PaymentOverview {
	o := r.o
	if r.lastPayment.Valid {
		id := r.lastPayment.Int64
		o.LastPaymentID = &id
	}
	return &o
}

// CreateOverview inserts a payment overview
func (t *txRepo) CreateOverview(ctx context.Context, o *models.PaymentOverview) error {
	query := `
		INSERT INTO billing.payment_overviews (user_id, purchase_id, contact_id, billing_email, total_sale, net,
			amount_paid, is_paid, last_payment_id, due_day_of_month, use_last_day_of_month, split_equally,
			late_fee_flat, late_fee_percent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := t.q.QueryRowContext(ctx, query,
		o.UserID, o.PurchaseID, o.ContactID, o.BillingEmail, o.TotalSale, o.Net,
		o.AmountPaid, o.IsPaid, nullInt64(o.LastPaymentID), o.DueDayOfMonth, o.UseLastDayOfMonth, o.SplitEqually,
		o.LateFeeFlat, o.LateFeePercent,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment overview: %w", err)
	}
	return nil
}

// GetOverview retrieves a payment overview and locks its row
func (t *txRepo) GetOverview(ctx context.Context, id int64) (*models.PaymentOverview, error) {
	query := `SELECT ` + overviewColumns + `
		FROM billing.payment_overviews o
		WHERE o.id = $1
		FOR UPDATE`
	var row overviewRow
	err := t.q.QueryRowContext(ctx, query, id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment overview %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment overview: %w", err)
	}
	return row.model(), nil
}

// UpdateOverview stores the mutable fields of a payment overview
func (t *txRepo) UpdateOverview(ctx context.Context, o *models.PaymentOverview) error {
	query := `
		UPDATE billing.payment_overviews
		SET billing_email = $2, total_sale = $3, net = $4, amount_paid = $5, is_paid = $6,
			last_payment_id = $7, due_day_of_month = $8, use_last_day_of_month = $9, split_equally = $10,
			late_fee_flat = $11, late_fee_percent = $12, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := t.q.ExecContext(ctx, query,
		o.ID, o.BillingEmail, o.TotalSale, o.Net, o.AmountPaid, o.IsPaid,
		nullInt64(o.LastPaymentID), o.DueDayOfMonth, o.UseLastDayOfMonth, o.SplitEqually,
		o.LateFeeFlat, o.LateFeePercent,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment overview: %w", err)
	}
	return affectedOne(res, fmt.Errorf("payment overview %d: %w", o.ID, models.ErrNotFound))
}
