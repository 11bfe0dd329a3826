package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/calendar-ads/internal/config"
	"github.com/Dan9191/calendar-ads/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LateNotice builds the reminder for an installment that is past due
func LateNotice(from string, late models.LateInstallment, asOf time.Time) *email.Email {
	inst, o := late.Installment, late.Overview

	e := email.NewEmail()
	e.From = from
	e.To = []string{o.BillingEmail}
	e.Subject = fmt.Sprintf("Overdue installment for purchase #%d", o.PurchaseID)

	days := int(midnight(asOf).Sub(midnight(inst.DueDate)).Hours() / 24)
	body := "Hello,\n\n"
	body += fmt.Sprintf(
		"The installment of %s due on %s is %d day(s) overdue.\n"+
			"Amount still outstanding: %s.\n",
		inst.Amount.StringFixed(2), inst.DueDate.Format("2006-01-02"), days, inst.Remaining().StringFixed(2),
	)
	switch {
	case inst.LateFeeWaived:
	case inst.LateFeeAddedToNet:
		body += fmt.Sprintf("A late fee of %s has been added to your balance.\n", inst.LateFee.Decimal.StringFixed(2))
	case inst.LateFee.Valid:
		body += fmt.Sprintf("A late fee of %s may be added to your balance.\n", inst.LateFee.Decimal.StringFixed(2))
	}
	body += fmt.Sprintf("Plan balance: %s of %s paid.\n", o.AmountPaid.StringFixed(2), o.Net.StringFixed(2))
	body += "\nBest regards,\nCalendar Ads Billing"
	e.Text = []byte(body)
	return e
}

// SendLateNotice mails the overdue reminder to the overview's billing address
func (s *Sender) SendLateNotice(late models.LateInstallment, asOf time.Time) error {
	e := LateNotice(s.cfg.SenderEmail, late, asOf)
	to := late.Overview.BillingEmail

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
