package repository

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS billing`,
	`CREATE TABLE IF NOT EXISTS billing.payment_overviews (
		id                    BIGSERIAL PRIMARY KEY,
		user_id               BIGINT NOT NULL,
		purchase_id           BIGINT NOT NULL,
		contact_id            BIGINT NOT NULL,
		billing_email         TEXT NOT NULL DEFAULT '',
		total_sale            NUMERIC(12,2) NOT NULL,
		net                   NUMERIC(12,2) NOT NULL,
		amount_paid           NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_paid               BOOLEAN NOT NULL DEFAULT FALSE,
		last_payment_id       BIGINT,
		due_day_of_month      INT NOT NULL DEFAULT 1,
		use_last_day_of_month BOOLEAN NOT NULL DEFAULT FALSE,
		split_equally         BOOLEAN NOT NULL DEFAULT TRUE,
		late_fee_flat         NUMERIC(12,2) NOT NULL DEFAULT 0,
		late_fee_percent      NUMERIC(6,3) NOT NULL DEFAULT 0,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS billing.payments (
		id            BIGSERIAL PRIMARY KEY,
		overview_id   BIGINT NOT NULL REFERENCES billing.payment_overviews(id) ON DELETE CASCADE,
		contact_id    BIGINT NOT NULL,
		purchase_id   BIGINT NOT NULL,
		amount        NUMERIC(12,2) NOT NULL,
		method        TEXT NOT NULL DEFAULT '',
		check_number  TEXT NOT NULL DEFAULT '',
		payment_date  TIMESTAMPTZ NOT NULL,
		is_prepayment BOOLEAN NOT NULL DEFAULT FALSE,
		status        TEXT NOT NULL DEFAULT 'active',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS billing.installments (
		id                    BIGSERIAL PRIMARY KEY,
		overview_id           BIGINT NOT NULL REFERENCES billing.payment_overviews(id) ON DELETE CASCADE,
		due_date              TIMESTAMPTZ NOT NULL,
		month                 INT NOT NULL,
		year                  INT NOT NULL,
		amount                NUMERIC(12,2) NOT NULL,
		amount_paid           NUMERIC(12,2) NOT NULL DEFAULT 0,
		paid                  BOOLEAN NOT NULL DEFAULT FALSE,
		payment_date          TIMESTAMPTZ,
		late_fee              NUMERIC(12,2),
		late_fee_waived       BOOLEAN NOT NULL DEFAULT FALSE,
		late_fee_added_to_net BOOLEAN NOT NULL DEFAULT FALSE,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS installments_overview_due_idx
		ON billing.installments (overview_id, due_date, id)`,
	`CREATE TABLE IF NOT EXISTS billing.payment_allocations (
		id             BIGSERIAL PRIMARY KEY,
		payment_id     BIGINT NOT NULL REFERENCES billing.payments(id) ON DELETE CASCADE,
		overview_id    BIGINT NOT NULL REFERENCES billing.payment_overviews(id) ON DELETE CASCADE,
		installment_id BIGINT NOT NULL REFERENCES billing.installments(id) ON DELETE CASCADE,
		amount         NUMERIC(12,2) NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS payment_allocations_payment_idx
		ON billing.payment_allocations (payment_id)`,
}

// Migrate creates the billing schema when it does not exist yet
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
