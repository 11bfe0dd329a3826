package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusActive    PaymentStatus = "active"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment represents money received against a payment overview
type Payment struct {
	ID           int64           `json:"id"`
	OverviewID   int64           `json:"overview_id"`
	ContactID    int64           `json:"contact_id"`
	PurchaseID   int64           `json:"purchase_id"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"payment_method"`
	CheckNumber  string          `json:"check_number"`
	PaymentDate  time.Time       `json:"payment_date"`
	IsPrepayment bool            `json:"is_prepayment"`
	Status       PaymentStatus   `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Active reports whether the payment counts towards the overview
func (p *Payment) Active() bool {
	return p.Status != PaymentStatusCancelled
}

// PaymentInput is the create/edit payment request
type PaymentInput struct {
	ID           int64           `json:"id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"paymentMethod"`
	CheckNumber  string          `json:"checkNumber"`
	PaymentDate  time.Time       `json:"paymentDate"`
	ContactID    int64           `json:"contactId"`
	PurchaseID   int64           `json:"purchaseId"`
	OverviewID   int64           `json:"paymentOverviewId"`
	IsPrepayment bool            `json:"isPrepayment"`
}
