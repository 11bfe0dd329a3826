package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/calendar-ads/internal/billing"
	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store"
)

// Service handles business logic
type Service struct {
	store  store.Store
	log    *logrus.Logger
	engine *billing.AllocationEngine
	agg    *billing.OverviewAggregator
	fees   *billing.LateFeeCalculator
	now    func() time.Time
}

// NewService initializes a new service
func NewService(st store.Store, log *logrus.Logger) *Service {
	return &Service{
		store:  st,
		log:    log,
		engine: billing.NewAllocationEngine(log),
		agg:    billing.NewOverviewAggregator(),
		fees:   billing.NewLateFeeCalculator(),
		now:    time.Now,
	}
}

// ownedOverview loads an overview and hides it from anyone but its owner
func (s *Service) ownedOverview(ctx context.Context, tx store.Tx, userID, id int64) (*models.PaymentOverview, error) {
	if id == 0 {
		return nil, fmt.Errorf("payment overview id is required: %w", models.ErrValidation)
	}
	o, err := tx.GetOverview(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("payment overview %d: %w", id, models.ErrNotFound)
	}
	return o, nil
}

// CreateOverview creates the payment overview of a sale
func (s *Service) CreateOverview(ctx context.Context, userID int64, in models.OverviewInput) (*models.PaymentOverview, error) {
	switch {
	case in.PurchaseID == 0:
		return nil, fmt.Errorf("purchase id is required: %w", models.ErrValidation)
	case in.ContactID == 0:
		return nil, fmt.Errorf("contact id is required: %w", models.ErrValidation)
	case in.TotalSale.IsNegative() || in.Net.IsNegative():
		return nil, fmt.Errorf("total sale and net cannot be negative: %w", models.ErrValidation)
	case in.LateFeeFlat.IsNegative() || in.LateFeePercent.IsNegative():
		return nil, fmt.Errorf("late fee cannot be negative: %w", models.ErrValidation)
	}

	o := &models.PaymentOverview{
		UserID:         userID,
		PurchaseID:     in.PurchaseID,
		ContactID:      in.ContactID,
		BillingEmail:   in.BillingEmail,
		TotalSale:      in.TotalSale,
		Net:            in.Net,
		IsPaid:         !in.Net.IsPositive(),
		DueDayOfMonth:  1,
		SplitEqually:   true,
		LateFeeFlat:    in.LateFeeFlat,
		LateFeePercent: in.LateFeePercent,
	}
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		return tx.CreateOverview(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Payment overview %d created for purchase %d", o.ID, o.PurchaseID)
	return o, nil
}

// GetOverview returns the overview view
func (s *Service) GetOverview(ctx context.Context, userID, overviewID int64) (models.OverviewView, error) {
	var view models.OverviewView
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := s.ownedOverview(ctx, tx, userID, overviewID)
		if err != nil {
			return err
		}
		view = o.View()
		return nil
	})
	return view, err
}

// ListInstallments returns the installment views of an overview
func (s *Service) ListInstallments(ctx context.Context, userID, overviewID int64) ([]models.InstallmentView, error) {
	var views []models.InstallmentView
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := s.ownedOverview(ctx, tx, userID, overviewID); err != nil {
			return err
		}
		items, err := tx.ListInstallments(ctx, overviewID)
		if err != nil {
			return err
		}
		views = s.views(items)
		return nil
	})
	return views, err
}

func (s *Service) views(items []*models.Installment) []models.InstallmentView {
	now := s.now()
	out := make([]models.InstallmentView, 0, len(items))
	for _, inst := range items {
		out = append(out, billing.View(inst, now))
	}
	return out
}

// GenerateSchedule replaces the overview's installments with a freshly
// generated schedule. It is refused once payments have been recorded. Net
// given in the request excludes late fees; fees already charged follow their
// period into the new schedule.
func (s *Service) GenerateSchedule(ctx context.Context, userID int64, req models.ScheduleRequest) ([]models.InstallmentView, error) {
	var views []models.InstallmentView
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := s.ownedOverview(ctx, tx, userID, req.OverviewID)
		if err != nil {
			return err
		}

		payments, err := tx.ListPayments(ctx, o.ID)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if p.Active() {
				return fmt.Errorf("payment overview %d already has payments, schedule cannot be regenerated: %w", o.ID, models.ErrValidation)
			}
		}

		existing, err := tx.ListInstallments(ctx, o.ID)
		if err != nil {
			return err
		}

		// Installments carry the principal only; charged late fees stay on
		// top of it in net.
		draft := billing.NewScheduleDraft(req)
		if draft.Net.IsZero() {
			draft.Net = o.Net.Sub(billing.ChargedFees(existing))
		}
		draft.LateFee = s.fees.FeeFor(o)

		items, err := billing.GenerateSchedule(draft)
		if err != nil {
			return err
		}
		charged := s.fees.CarryOver(existing, items, s.now())
		if err := tx.DeleteInstallments(ctx, o.ID); err != nil {
			return err
		}
		if err := tx.CreateInstallments(ctx, items); err != nil {
			return err
		}

		o.Net = draft.Net.Add(charged)
		o.DueDayOfMonth = draft.DueDayOfMonth
		o.UseLastDayOfMonth = draft.UseLastDayOfMonth
		o.SplitEqually = draft.SplitEqually
		if err := s.agg.Recompute(ctx, tx, o); err != nil {
			return err
		}
		views = s.views(items)
		return nil
	})
	if err != nil {
		s.log.WithField("overview_id", req.OverviewID).Errorf("Failed to generate schedule: %v", err)
		return nil, err
	}

	s.log.Infof("Schedule of %d installments generated for overview %d", len(views), req.OverviewID)
	return views, nil
}
