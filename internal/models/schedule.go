package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Period is a month of a given year covered by a payment plan
type Period struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

// Before reports whether p comes strictly before other
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// PeriodAmount is a custom amount for one period
type PeriodAmount struct {
	Month  time.Month      `json:"month"`
	Year   int             `json:"year"`
	Amount decimal.Decimal `json:"amount"`
}

// ScheduleRequest is the generate-schedule request
type ScheduleRequest struct {
	OverviewID        int64           `json:"overviewId"`
	Net               decimal.Decimal `json:"net"`
	Periods           []Period        `json:"periods"`
	DueDayOfMonth     int             `json:"dueDayOfMonth"`
	UseLastDayOfMonth bool            `json:"useLastDayOfMonth"`
	SplitEqually      bool            `json:"splitEqually"`
	CustomAmounts     []PeriodAmount  `json:"customAmounts,omitempty"`
	BalanceLastPeriod bool            `json:"balanceLastPeriod,omitempty"`
}
