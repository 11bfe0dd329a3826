package store

import (
	"context"
	"time"

	"github.com/Dan9191/calendar-ads/internal/models"
)

// Store opens transaction-scoped units of work. fn's error rolls back every
// write it made; a nil return commits them.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside one unit of work. Lookups of
// missing rows return an error wrapping models.ErrNotFound.
type Tx interface {
	CreateOverview(ctx context.Context, o *models.PaymentOverview) error
	// GetOverview loads the overview and locks it for the rest of the unit.
	GetOverview(ctx context.Context, id int64) (*models.PaymentOverview, error)
	UpdateOverview(ctx context.Context, o *models.PaymentOverview) error

	CreateInstallments(ctx context.Context, items []*models.Installment) error
	GetInstallment(ctx context.Context, id int64) (*models.Installment, error)
	// ListInstallments returns every installment of the overview by due date, then id.
	ListInstallments(ctx context.Context, overviewID int64) ([]*models.Installment, error)
	// ListUnpaidInstallments is ListInstallments restricted to paid == false.
	ListUnpaidInstallments(ctx context.Context, overviewID int64) ([]*models.Installment, error)
	// ListLateInstallments returns unpaid installments due strictly before the
	// day of asOf across all overviews.
	ListLateInstallments(ctx context.Context, asOf time.Time) ([]models.LateInstallment, error)
	UpdateInstallment(ctx context.Context, inst *models.Installment) error
	DeleteInstallments(ctx context.Context, overviewID int64) error

	CreateAllocation(ctx context.Context, a *models.PaymentAllocation) error
	ListAllocationsByPayment(ctx context.Context, paymentID int64) ([]*models.PaymentAllocation, error)
	ListAllocationsByOverview(ctx context.Context, overviewID int64) ([]*models.PaymentAllocation, error)
	DeleteAllocationsByPayment(ctx context.Context, paymentID int64) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	ListPayments(ctx context.Context, overviewID int64) ([]*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error
	DeletePayment(ctx context.Context, id int64) error
}
