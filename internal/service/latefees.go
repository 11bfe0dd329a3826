package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/calendar-ads/internal/billing"
	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store"
)

// SetLateFeeWaiver toggles the late-fee waiver of an installment
func (s *Service) SetLateFeeWaiver(ctx context.Context, userID, installmentID int64, waived bool) (models.InstallmentView, error) {
	var view models.InstallmentView
	changed := false
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		inst, err := tx.GetInstallment(ctx, installmentID)
		if err != nil {
			return err
		}
		o, err := s.ownedOverview(ctx, tx, userID, inst.OverviewID)
		if err != nil {
			return err
		}

		now := s.now()
		changed = s.fees.SetWaiver(inst, o, waived, now)
		if err := tx.UpdateInstallment(ctx, inst); err != nil {
			return err
		}
		if changed {
			if err := s.agg.Recompute(ctx, tx, o); err != nil {
				return err
			}
		}
		view = billing.View(inst, now)
		return nil
	})
	if err != nil {
		s.log.WithField("installment_id", installmentID).Errorf("Failed to set late fee waiver: %v", err)
		return models.InstallmentView{}, err
	}

	s.log.WithFields(logrus.Fields{
		"installment_id": installmentID,
		"waived":         waived,
		"net_changed":    changed,
	}).Info("Late fee waiver updated")
	return view, nil
}

// AssessLateFees charges the late fees of the overview's late installments
// that have not been charged yet.
func (s *Service) AssessLateFees(ctx context.Context, userID, overviewID int64) (models.OverviewView, error) {
	var view models.OverviewView
	charged := 0
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := s.ownedOverview(ctx, tx, userID, overviewID)
		if err != nil {
			return err
		}
		items, err := s.fees.Assess(ctx, tx, o, s.now())
		if err != nil {
			return err
		}
		charged = len(items)
		if charged > 0 {
			if err := s.agg.Recompute(ctx, tx, o); err != nil {
				return err
			}
		}
		view = o.View()
		return nil
	})
	if err != nil {
		s.log.WithField("overview_id", overviewID).Errorf("Failed to assess late fees: %v", err)
		return models.OverviewView{}, err
	}

	s.log.WithField("overview_id", overviewID).Infof("Late fees assessed on %d installments", charged)
	return view, nil
}
