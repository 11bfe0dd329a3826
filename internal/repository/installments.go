package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/calendar-ads/internal/models"
)

const installmentColumns = `i.id, i.overview_id, i.due_date, i.month, i.year, i.amount, i.amount_paid, i.paid,
	i.payment_date, i.late_fee, i.late_fee_waived, i.late_fee_added_to_net, i.created_at, i.updated_at`

type installmentRow struct {
	inst        models.Installment
	month       int
	paymentDate sql.NullTime
}

func (r *installmentRow) dest() []any {
	return []any{
		&r.inst.ID, &r.inst.OverviewID, &r.inst.DueDate, &r.month, &r.inst.Year, &r.inst.Amount,
		&r.inst.AmountPaid, &r.inst.Paid, &r.paymentDate, &r.inst.LateFee, &r.inst.LateFeeWaived,
		&r.inst.LateFeeAddedToNet, &r.inst.CreatedAt, &r.inst.UpdatedAt,
	}
}

func (r *installmentRow) model() *models.Installment {
	inst := r.inst
	inst.Month = time.Month(r.month)
	inst.DueDate = inst.DueDate.UTC()
	if r.paymentDate.Valid {
		d := r.paymentDate.Time
		inst.PaymentDate = &d
	}
	return &inst
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CreateInstallments inserts a batch of installments
func (t *txRepo) CreateInstallments(ctx context.Context, items []*models.Installment) error {
	query := `
		INSERT INTO billing.installments (overview_id, due_date, month, year, amount, amount_paid, paid,
			payment_date, late_fee, late_fee_waived, late_fee_added_to_net, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	for _, inst := range items {
		err := t.q.QueryRowContext(ctx, query,
			inst.OverviewID, inst.DueDate, int(inst.Month), inst.Year, inst.Amount, inst.AmountPaid, inst.Paid,
			nullTime(inst.PaymentDate), inst.LateFee, inst.LateFeeWaived, inst.LateFeeAddedToNet,
		).Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create installment: %w", err)
		}
	}
	return nil
}

// GetInstallment retrieves an installment by id
func (t *txRepo) GetInstallment(ctx context.Context, id int64) (*models.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM billing.installments i WHERE i.id = $1`
	var row installmentRow
	err := t.q.QueryRowContext(ctx, query, id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("installment %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find installment: %w", err)
	}
	return row.model(), nil
}

func (t *txRepo) queryInstallments(ctx context.Context, query string, args ...any) ([]*models.Installment, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var out []*models.Installment
	for rows.Next() {
		var row installmentRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		out = append(out, row.model())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	return out, nil
}

// ListInstallments returns the installments of an overview by due date
func (t *txRepo) ListInstallments(ctx context.Context, overviewID int64) ([]*models.Installment, error) {
	query := `SELECT ` + installmentColumns + `
		FROM billing.installments i
		WHERE i.overview_id = $1
		ORDER BY i.due_date, i.id`
	return t.queryInstallments(ctx, query, overviewID)
}

// ListUnpaidInstallments returns the unpaid installments of an overview by due date
func (t *txRepo) ListUnpaidInstallments(ctx context.Context, overviewID int64) ([]*models.Installment, error) {
	query := `SELECT ` + installmentColumns + `
		FROM billing.installments i
		WHERE i.overview_id = $1 AND NOT i.paid
		ORDER BY i.due_date, i.id
		FOR UPDATE`
	return t.queryInstallments(ctx, query, overviewID)
}

// ListLateInstallments returns unpaid installments due before the day of asOf
func (t *txRepo) ListLateInstallments(ctx context.Context, asOf time.Time) ([]models.LateInstallment, error) {
	y, m, d := asOf.UTC().Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	query := `SELECT ` + installmentColumns + `, ` + overviewColumns + `
		FROM billing.installments i
		JOIN billing.payment_overviews o ON o.id = i.overview_id
		WHERE NOT i.paid AND i.due_date < $1
		ORDER BY i.due_date, i.id`
	rows, err := t.q.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list late installments: %w", err)
	}
	defer rows.Close()

	var out []models.LateInstallment
	for rows.Next() {
		var ir installmentRow
		var or overviewRow
		if err := rows.Scan(append(ir.dest(), or.dest()...)...); err != nil {
			return nil, fmt.Errorf("failed to scan late installment: %w", err)
		}
		out = append(out, models.LateInstallment{Installment: ir.model(), Overview: or.model()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list late installments: %w", err)
	}
	return out, nil
}

// UpdateInstallment stores the mutable fields of an installment
func (t *txRepo) UpdateInstallment(ctx context.Context, inst *models.Installment) error {
	query := `
		UPDATE billing.installments
		SET amount = $2, amount_paid = $3, paid = $4, payment_date = $5, late_fee = $6,
			late_fee_waived = $7, late_fee_added_to_net = $8, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := t.q.ExecContext(ctx, query,
		inst.ID, inst.Amount, inst.AmountPaid, inst.Paid, nullTime(inst.PaymentDate), inst.LateFee,
		inst.LateFeeWaived, inst.LateFeeAddedToNet,
	)
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	return affectedOne(res, fmt.Errorf("installment %d: %w", inst.ID, models.ErrNotFound))
}

// DeleteInstallments removes every installment of an overview
func (t *txRepo) DeleteInstallments(ctx context.Context, overviewID int64) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM billing.installments WHERE overview_id = $1`, overviewID); err != nil {
		return fmt.Errorf("failed to delete installments: %w", err)
	}
	return nil
}
