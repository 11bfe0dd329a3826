package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment represents one scheduled due-date obligation of a payment plan
type Installment struct {
	ID                int64               `json:"id"`
	OverviewID        int64               `json:"overview_id"`
	DueDate           time.Time           `json:"due_date"`
	Month             time.Month          `json:"month"`
	Year              int                 `json:"year"`
	Amount            decimal.Decimal     `json:"amount"`
	AmountPaid        decimal.Decimal     `json:"amount_paid"`
	Paid              bool                `json:"paid"`
	PaymentDate       *time.Time          `json:"payment_date,omitempty"`
	LateFee           decimal.NullDecimal `json:"late_fee"`
	LateFeeWaived     bool                `json:"late_fee_waived"`
	LateFeeAddedToNet bool                `json:"late_fee_added_to_net"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Remaining returns how much can still be allocated to the installment
func (i *Installment) Remaining() decimal.Decimal {
	r := i.Amount.Sub(i.AmountPaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Clone returns a deep copy of the installment
func (i *Installment) Clone() *Installment {
	c := *i
	if i.PaymentDate != nil {
		d := *i.PaymentDate
		c.PaymentDate = &d
	}
	return &c
}

// LateInstallment pairs a late installment with the overview it belongs to
type LateInstallment struct {
	Installment *Installment
	Overview    *PaymentOverview
}
