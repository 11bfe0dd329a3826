package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/calendar-ads/internal/models"
)

// ScheduleDraft holds the plan settings of one editing session. It is built
// per request and handed to GenerateSchedule.
type ScheduleDraft struct {
	OverviewID        int64
	Net               decimal.Decimal
	Periods           []models.Period
	DueDayOfMonth     int
	UseLastDayOfMonth bool
	SplitEqually      bool
	CustomAmounts     map[models.Period]decimal.Decimal
	// BalanceLastPeriod makes the last period take whatever the other
	// custom amounts leave of net.
	BalanceLastPeriod bool
	LateFee           decimal.NullDecimal
}

var cent = decimal.New(1, -2)

// NewScheduleDraft builds a draft from a generate-schedule request
func NewScheduleDraft(req models.ScheduleRequest) *ScheduleDraft {
	d := &ScheduleDraft{
		OverviewID:        req.OverviewID,
		Net:               req.Net,
		Periods:           append([]models.Period(nil), req.Periods...),
		DueDayOfMonth:     req.DueDayOfMonth,
		UseLastDayOfMonth: req.UseLastDayOfMonth,
		SplitEqually:      req.SplitEqually,
		BalanceLastPeriod: req.BalanceLastPeriod,
	}
	if len(req.CustomAmounts) > 0 {
		d.CustomAmounts = make(map[models.Period]decimal.Decimal, len(req.CustomAmounts))
		for _, ca := range req.CustomAmounts {
			d.CustomAmounts[models.Period{Month: ca.Month, Year: ca.Year}] = ca.Amount
		}
	}
	return d
}

// BalanceLastAmount sets the custom amount of the chronologically last period
// so that the custom amounts add up to net.
func (d *ScheduleDraft) BalanceLastAmount() {
	if len(d.Periods) == 0 {
		return
	}
	periods := sortedPeriods(d.Periods)
	last := periods[len(periods)-1]
	if d.CustomAmounts == nil {
		d.CustomAmounts = map[models.Period]decimal.Decimal{}
	}
	rest := decimal.Zero
	for _, p := range periods[:len(periods)-1] {
		rest = rest.Add(d.CustomAmounts[p])
	}
	d.CustomAmounts[last] = d.Net.Sub(rest)
}

func sortedPeriods(periods []models.Period) []models.Period {
	out := append([]models.Period(nil), periods...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// DaysIn returns the number of days of the month
func DaysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// DueDate returns the due date of a period, anchored at noon UTC. A day past
// the end of the month is clamped to its last day.
func DueDate(p models.Period, dueDay int, lastDay bool) time.Time {
	days := DaysIn(p.Month, p.Year)
	day := dueDay
	if lastDay || day > days {
		day = days
	}
	return time.Date(p.Year, p.Month, day, 12, 0, 0, 0, time.UTC)
}

func (d *ScheduleDraft) validate() error {
	if d.OverviewID == 0 {
		return fmt.Errorf("overview id is required: %w", models.ErrValidation)
	}
	if !d.Net.IsPositive() {
		return fmt.Errorf("net must be positive, got %s: %w", d.Net, models.ErrValidation)
	}
	if len(d.Periods) == 0 {
		return fmt.Errorf("at least one period is required: %w", models.ErrValidation)
	}
	if d.SplitEqually && d.Net.LessThan(cent.Mul(decimal.NewFromInt(int64(len(d.Periods))))) {
		return fmt.Errorf("net %s cannot be split into %d installments of at least 0.01: %w", d.Net, len(d.Periods), models.ErrValidation)
	}
	if !d.UseLastDayOfMonth && (d.DueDayOfMonth < 1 || d.DueDayOfMonth > 31) {
		return fmt.Errorf("due day %d outside 1..31: %w", d.DueDayOfMonth, models.ErrValidation)
	}
	seen := make(map[models.Period]bool, len(d.Periods))
	for _, p := range d.Periods {
		if p.Month < time.January || p.Month > time.December || p.Year < 1 {
			return fmt.Errorf("invalid period %s: %w", p, models.ErrValidation)
		}
		if seen[p] {
			return fmt.Errorf("duplicate period %s: %w", p, models.ErrValidation)
		}
		seen[p] = true
	}
	return nil
}

// GenerateSchedule produces one installment per period of the draft, ordered
// by due date. With an equal split the last period absorbs the rounding
// difference and every amount is at least 0.01; custom amounts must add up
// to net exactly unless the draft balances the last period.
func GenerateSchedule(d *ScheduleDraft) ([]*models.Installment, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	periods := sortedPeriods(d.Periods)

	var amounts []decimal.Decimal
	var err error
	if d.SplitEqually {
		amounts = splitEqually(d.Net, len(periods))
	} else {
		if d.BalanceLastPeriod {
			d.BalanceLastAmount()
		}
		amounts, err = customAmounts(d, periods)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*models.Installment, 0, len(periods))
	for i, p := range periods {
		inst := &models.Installment{
			OverviewID: d.OverviewID,
			DueDate:    DueDate(p, d.DueDayOfMonth, d.UseLastDayOfMonth),
			Month:      p.Month,
			Year:       p.Year,
			Amount:     amounts[i],
			AmountPaid: decimal.Zero,
			LateFee:    d.LateFee,
		}
		inst.Paid = inst.AmountPaid.GreaterThanOrEqual(inst.Amount)
		out = append(out, inst)
	}
	return out, nil
}

func splitEqually(net decimal.Decimal, n int) []decimal.Decimal {
	count := decimal.NewFromInt(int64(n))
	base := net.DivRound(count, 2)
	rest := decimal.NewFromInt(int64(n - 1))
	if base.Mul(rest).GreaterThanOrEqual(net) {
		base = net.Div(count).RoundFloor(2)
	}
	amounts := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		amounts[i] = base
	}
	amounts[n-1] = net.Sub(base.Mul(rest))
	return amounts
}

func customAmounts(d *ScheduleDraft, periods []models.Period) ([]decimal.Decimal, error) {
	amounts := make([]decimal.Decimal, len(periods))
	sum := decimal.Zero
	for i, p := range periods {
		a, ok := d.CustomAmounts[p]
		if !ok {
			return nil, fmt.Errorf("no amount for period %s: %w", p, models.ErrValidation)
		}
		if a.IsNegative() {
			return nil, fmt.Errorf("negative amount %s for period %s: %w", a, p, models.ErrValidation)
		}
		amounts[i] = a
		sum = sum.Add(a)
	}
	if !sum.Equal(d.Net) {
		return nil, fmt.Errorf("custom amounts add up to %s, net is %s: %w", sum.StringFixed(2), d.Net.StringFixed(2), models.ErrValidation)
	}
	return amounts, nil
}
