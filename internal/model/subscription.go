package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the Stripe subscription status.
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

type Subscription struct {
	ID                   uuid.UUID          `db:"id" json:"id"`
	UserID               string             `db:"user_id" json:"user_id"`
	StripeSubscriptionID string             `db:"stripe_subscription_id" json:"-"`
	StripeCustomerID     string             `db:"stripe_customer_id" json:"-"`
	StripePriceID        string             `db:"stripe_price_id" json:"-"`
	PlanID               string             `db:"plan_id" json:"plan_id"`
	BicycleLimit         int                `db:"bicycle_limit" json:"bicycle_limit"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	CurrentPeriodStart   *time.Time         `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time         `db:"current_period_end" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool               `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CanceledAt           *time.Time         `db:"canceled_at" json:"canceled_at,omitempty"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// IsUsable reports whether the subscription currently allows registering
// bicycles: active or trialing, or past_due while the paid period lasts.
func (s *Subscription) IsUsable(now time.Time) bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
		return true
	case SubscriptionStatusPastDue:
		return s.CurrentPeriodEnd != nil && now.Before(*s.CurrentPeriodEnd)
	default:
		return false
	}
}

// PeriodEnded reports whether the current period is over at now.
func (s *Subscription) PeriodEnded(now time.Time) bool {
	return s.CurrentPeriodEnd != nil && !now.Before(*s.CurrentPeriodEnd)
}
