package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentView is the read model of an installment
type InstallmentView struct {
	ID            int64               `json:"id"`
	DueDate       time.Time           `json:"dueDate"`
	Amount        decimal.Decimal     `json:"amount"`
	AmountPaid    decimal.Decimal     `json:"amountPaid"`
	IsPaid        bool                `json:"isPaid"`
	IsLate        bool                `json:"isLate"`
	PaymentDate   *time.Time          `json:"paymentDate"`
	LateFee       decimal.NullDecimal `json:"lateFee"`
	LateFeeWaived bool                `json:"lateFeeWaived"`
}

// OverviewView is the read model of a payment overview
type OverviewView struct {
	ID            int64           `json:"id"`
	Net           decimal.Decimal `json:"net"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	IsPaid        bool            `json:"isPaid"`
	LastPaymentID *int64          `json:"lastPaymentId"`
}

// View converts the overview to its read model
func (o *PaymentOverview) View() OverviewView {
	return OverviewView{
		ID:            o.ID,
		Net:           o.Net,
		AmountPaid:    o.AmountPaid,
		IsPaid:        o.IsPaid,
		LastPaymentID: o.LastPaymentID,
	}
}
