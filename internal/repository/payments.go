package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/calendar-ads/internal/models"
)

const paymentColumns = `id, overview_id, contact_id, purchase_id, amount, method, check_number, payment_date,
	is_prepayment, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(s scanner) (*models.Payment, error) {
	p := &models.Payment{}
	var status string
	err := s.Scan(&p.ID, &p.OverviewID, &p.ContactID, &p.PurchaseID, &p.Amount, &p.Method, &p.CheckNumber,
		&p.PaymentDate, &p.IsPrepayment, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	return p, nil
}

// CreatePayment inserts a payment
func (t *txRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO billing.payments (overview_id, contact_id, purchase_id, amount, method, check_number,
			payment_date, is_prepayment, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := t.q.QueryRowContext(ctx, query,
		p.OverviewID, p.ContactID, p.PurchaseID, p.Amount, p.Method, p.CheckNumber,
		p.PaymentDate, p.IsPrepayment, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by id
func (t *txRepo) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM billing.payments WHERE id = $1`
	p, err := scanPayment(t.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return p, nil
}

// ListPayments returns every payment of an overview
func (t *txRepo) ListPayments(ctx context.Context, overviewID int64) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM billing.payments WHERE overview_id = $1 ORDER BY id`
	rows, err := t.q.QueryContext(ctx, query, overviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return out, nil
}

// UpdatePayment stores the mutable fields of a payment
func (t *txRepo) UpdatePayment(ctx context.Context, p *models.Payment) error {
	query := `
		UPDATE billing.payments
		SET contact_id = $2, purchase_id = $3, amount = $4, method = $5, check_number = $6,
			payment_date = $7, is_prepayment = $8, status = $9, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := t.q.ExecContext(ctx, query,
		p.ID, p.ContactID, p.PurchaseID, p.Amount, p.Method, p.CheckNumber,
		p.PaymentDate, p.IsPrepayment, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return affectedOne(res, fmt.Errorf("payment %d: %w", p.ID, models.ErrNotFound))
}

// DeletePayment removes a payment; its allocations cascade
func (t *txRepo) DeletePayment(ctx context.Context, id int64) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM billing.payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return affectedOne(res, fmt.Errorf("payment %d: %w", id, models.ErrNotFound))
}
