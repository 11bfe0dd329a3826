package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store"
)

// Mailer delivers the reminder of one late installment
type Mailer interface {
	SendLateNotice(late models.LateInstallment, asOf time.Time) error
}

// Job periodically mails a reminder for every late installment. It only
// reads; late fees are never charged from here.
type Job struct {
	store  store.Store
	mailer Mailer
	log    *logrus.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// NewJob creates a reminder job
func NewJob(st store.Store, mailer Mailer, log *logrus.Logger) *Job {
	return &Job{
		store:  st,
		mailer: mailer,
		log:    log,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		now:    time.Now,
	}
}

// Start schedules the job with a standard five-field cron expression
func (j *Job) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, func() {
		if _, err := j.RunOnce(context.Background(), j.now()); err != nil {
			j.log.Errorf("Reminder run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	j.cron.Start()
	j.log.Infof("Reminder job scheduled: %s", spec)
	return nil
}

// Stop stops the scheduler. The returned context is done once a running
// pass has finished.
func (j *Job) Stop() context.Context {
	return j.cron.Stop()
}

// RunOnce sends the reminders due as of asOf and returns how many were sent.
// A failed delivery is logged and does not stop the pass.
func (j *Job) RunOnce(ctx context.Context, asOf time.Time) (int, error) {
	var late []models.LateInstallment
	err := j.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		late, err = tx.ListLateInstallments(ctx, asOf)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list late installments: %w", err)
	}

	sent := 0
	for _, l := range late {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		fields := logrus.Fields{"overview_id": l.Overview.ID, "installment_id": l.Installment.ID}
		if l.Overview.BillingEmail == "" {
			j.log.WithFields(fields).Debug("No billing email, reminder skipped")
			continue
		}
		if err := j.mailer.SendLateNotice(l, asOf); err != nil {
			j.log.WithFields(fields).Errorf("Failed to send reminder: %v", err)
			continue
		}
		sent++
	}

	j.log.Infof("Reminders sent: %d of %d late installments", sent, len(late))
	return sent, nil
}
