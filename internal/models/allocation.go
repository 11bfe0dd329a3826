package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentAllocation records how much of a payment was applied to an installment
type PaymentAllocation struct {
	ID            int64           `json:"id"`
	PaymentID     int64           `json:"payment_id"`
	OverviewID    int64           `json:"overview_id"`
	InstallmentID int64           `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
