package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusPending   PaymentStatus = "pending"
)

// Payment mirrors a Stripe invoice. Amounts are kept in minor units.
type Payment struct {
	ID                    uuid.UUID     `db:"id" json:"id"`
	UserID                string        `db:"user_id" json:"user_id"`
	SubscriptionID        *uuid.UUID    `db:"subscription_id" json:"subscription_id,omitempty"`
	StripeInvoiceID       string        `db:"stripe_invoice_id" json:"stripe_invoice_id"`
	StripePaymentIntentID *string       `db:"stripe_payment_intent_id" json:"-"`
	AmountCents           int64         `db:"amount_cents" json:"-"`
	Currency              string        `db:"currency" json:"currency"`
	Status                PaymentStatus `db:"status" json:"status"`
	Description           *string       `db:"description" json:"description,omitempty"`
	InvoiceURL            *string       `db:"invoice_url" json:"invoice_url,omitempty"`
	CreatedAt             time.Time     `db:"created_at" json:"created_at"`
}

// Amount converts AmountCents to major units (12990 -> 129.90).
func (p *Payment) Amount() decimal.Decimal {
	return decimal.New(p.AmountCents, -2)
}

// PaymentView is a payment with its decimal amount, as returned by the API.
type PaymentView struct {
	*Payment
	Amount decimal.Decimal `json:"amount"`
}

func NewPaymentView(p *Payment) PaymentView {
	return PaymentView{Payment: p, Amount: p.Amount()}
}
