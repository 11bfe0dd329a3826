package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentOverview is the aggregate payment plan of one sale
type PaymentOverview struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	PurchaseID        int64           `json:"purchase_id"`
	ContactID         int64           `json:"contact_id"`
	BillingEmail      string          `json:"billing_email"`
	TotalSale         decimal.Decimal `json:"total_sale"`
	Net               decimal.Decimal `json:"net"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	IsPaid            bool            `json:"is_paid"`
	LastPaymentID     *int64          `json:"last_payment_id,omitempty"`
	DueDayOfMonth     int             `json:"due_day_of_month"`
	UseLastDayOfMonth bool            `json:"use_last_day_of_month"`
	SplitEqually      bool            `json:"split_equally"`
	LateFeeFlat       decimal.Decimal `json:"late_fee_flat"`
	LateFeePercent    decimal.Decimal `json:"late_fee_percent"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the overview
func (o *PaymentOverview) Clone() *PaymentOverview {
	c := *o
	if o.LastPaymentID != nil {
		id := *o.LastPaymentID
		c.LastPaymentID = &id
	}
	return &c
}

// OverviewInput creates a payment overview for a sale
type OverviewInput struct {
	PurchaseID     int64           `json:"purchaseId"`
	ContactID      int64           `json:"contactId"`
	BillingEmail   string          `json:"billingEmail"`
	TotalSale      decimal.Decimal `json:"totalSale"`
	Net            decimal.Decimal `json:"net"`
	LateFeeFlat    decimal.Decimal `json:"lateFeeFlat"`
	LateFeePercent decimal.Decimal `json:"lateFeePercent"`
}
