package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store"
)

func (s *Service) validatePayment(in *models.PaymentInput) error {
	switch {
	case in.OverviewID == 0:
		return fmt.Errorf("payment overview id is required: %w", models.ErrValidation)
	case in.ContactID == 0:
		return fmt.Errorf("contact id is required: %w", models.ErrValidation)
	case in.PurchaseID == 0:
		return fmt.Errorf("purchase id is required: %w", models.ErrValidation)
	case !in.Amount.IsPositive():
		return fmt.Errorf("amount must be positive, got %s: %w", in.Amount, models.ErrValidation)
	}
	if in.PaymentDate.IsZero() {
		in.PaymentDate = s.now()
	}
	return nil
}

// CreatePayment records a payment and allocates it to the overview's
// outstanding installments.
func (s *Service) CreatePayment(ctx context.Context, userID int64, in models.PaymentInput) (*models.Payment, error) {
	if err := s.validatePayment(&in); err != nil {
		return nil, err
	}

	p := &models.Payment{
		OverviewID:   in.OverviewID,
		ContactID:    in.ContactID,
		PurchaseID:   in.PurchaseID,
		Amount:       in.Amount,
		Method:       in.Method,
		CheckNumber:  in.CheckNumber,
		PaymentDate:  in.PaymentDate,
		IsPrepayment: in.IsPrepayment,
		Status:       models.PaymentStatusActive,
	}
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := s.ownedOverview(ctx, tx, userID, in.OverviewID)
		if err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return err
		}
		if _, err := s.engine.Apply(ctx, tx, p); err != nil {
			return err
		}
		id := p.ID
		o.LastPaymentID = &id
		return s.agg.Recompute(ctx, tx, o)
	})
	if err != nil {
		s.log.WithField("overview_id", in.OverviewID).Errorf("Failed to create payment: %v", err)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payment_id":  p.ID,
		"overview_id": p.OverviewID,
	}).Infof("Payment of %s recorded", p.Amount.StringFixed(2))
	return p, nil
}

// UpdatePayment edits a payment: its previous allocations are reversed and
// the new amount is allocated again as of the new payment date.
func (s *Service) UpdatePayment(ctx context.Context, userID, paymentID int64, in models.PaymentInput) (*models.Payment, error) {
	if err := s.validatePayment(&in); err != nil {
		return nil, err
	}

	var p *models.Payment
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.GetPayment(ctx, paymentID); err != nil {
			return err
		}
		o, err := s.ownedOverview(ctx, tx, userID, p.OverviewID)
		if err != nil {
			return err
		}
		if in.OverviewID != p.OverviewID {
			return fmt.Errorf("payment %d cannot move to overview %d: %w", p.ID, in.OverviewID, models.ErrValidation)
		}
		if !p.Active() {
			return fmt.Errorf("payment %d is cancelled: %w", p.ID, models.ErrValidation)
		}

		p.ContactID = in.ContactID
		p.PurchaseID = in.PurchaseID
		p.Amount = in.Amount
		p.Method = in.Method
		p.CheckNumber = in.CheckNumber
		p.PaymentDate = in.PaymentDate
		p.IsPrepayment = in.IsPrepayment
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		if _, err := s.engine.Apply(ctx, tx, p); err != nil {
			return err
		}
		return s.agg.Recompute(ctx, tx, o)
	})
	if err != nil {
		s.log.WithField("payment_id", paymentID).Errorf("Failed to update payment: %v", err)
		return nil, err
	}

	s.log.WithField("payment_id", p.ID).Infof("Payment updated to %s", p.Amount.StringFixed(2))
	return p, nil
}

// DeletePayment removes a payment and reverses its allocations
func (s *Service) DeletePayment(ctx context.Context, userID, paymentID int64) error {
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		o, err := s.ownedOverview(ctx, tx, userID, p.OverviewID)
		if err != nil {
			return err
		}
		if err := s.engine.Reverse(ctx, tx, p.ID); err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, p.ID); err != nil {
			return err
		}
		clearLastPayment(o, p.ID)
		return s.agg.Recompute(ctx, tx, o)
	})
	if err != nil {
		s.log.WithField("payment_id", paymentID).Errorf("Failed to delete payment: %v", err)
		return err
	}

	s.log.WithField("payment_id", paymentID).Info("Payment deleted")
	return nil
}

// CancelPayment marks a payment cancelled on behalf of the billing provider.
// Its allocations are reversed exactly as on deletion but the row is kept.
// Cancelling a cancelled payment does nothing.
func (s *Service) CancelPayment(ctx context.Context, paymentID int64) error {
	changed := false
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if !p.Active() {
			return nil
		}
		o, err := tx.GetOverview(ctx, p.OverviewID)
		if err != nil {
			return err
		}
		if err := s.engine.Reverse(ctx, tx, p.ID); err != nil {
			return err
		}
		p.Status = models.PaymentStatusCancelled
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		clearLastPayment(o, p.ID)
		changed = true
		return s.agg.Recompute(ctx, tx, o)
	})
	if err != nil {
		s.log.WithField("payment_id", paymentID).Errorf("Failed to cancel payment: %v", err)
		return err
	}

	if changed {
		s.log.WithField("payment_id", paymentID).Info("Payment cancelled")
	}
	return nil
}

func clearLastPayment(o *models.PaymentOverview, paymentID int64) {
	if o.LastPaymentID != nil && *o.LastPaymentID == paymentID {
		o.LastPaymentID = nil
	}
}
