package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository struct {
	db DBTX
}

const subscriptionColumns = `id, user_id, stripe_subscription_id, stripe_customer_id, stripe_price_id, plan_id, bicycle_limit, status, current_period_start, current_period_end, cancel_at_period_end, canceled_at, created_at, updated_at`

// Upsert inserts or refreshes the mirror of a Stripe subscription, keyed by
// stripe_subscription_id. Replaying the same event leaves the row unchanged.
// canceled is terminal: an out-of-order event cannot revive the row.
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *model.Subscription) (*model.Subscription, error) {
	stmt := `
		INSERT INTO subscriptions (
			user_id, stripe_subscription_id, stripe_customer_id, stripe_price_id, plan_id, bicycle_limit,
			status, current_period_start, current_period_end, cancel_at_period_end, canceled_at
		) VALUES (
			@user_id, @stripe_subscription_id, @stripe_customer_id, @stripe_price_id, @plan_id, @bicycle_limit,
			@status, @current_period_start, @current_period_end, @cancel_at_period_end, @canceled_at
		)
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_price_id = EXCLUDED.stripe_price_id,
			plan_id = EXCLUDED.plan_id,
			bicycle_limit = EXCLUDED.bicycle_limit,
			status = CASE WHEN subscriptions.status = 'canceled' THEN subscriptions.status ELSE EXCLUDED.status END,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			canceled_at = CASE WHEN subscriptions.status = 'canceled' THEN subscriptions.canceled_at ELSE EXCLUDED.canceled_at END
		RETURNING ` + subscriptionColumns

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"user_id":                s.UserID,
		"stripe_subscription_id": s.StripeSubscriptionID,
		"stripe_customer_id":     s.StripeCustomerID,
		"stripe_price_id":        s.StripePriceID,
		"plan_id":                s.PlanID,
		"bicycle_limit":          s.BicycleLimit,
		"status":                 s.Status,
		"current_period_start":   s.CurrentPeriodStart,
		"current_period_end":     s.CurrentPeriodEnd,
		"cancel_at_period_end":   s.CancelAtPeriodEnd,
		"canceled_at":            s.CanceledAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute upsert subscription query for stripe_id=%s: %w", s.StripeSubscriptionID, err)
	}

	sub, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Subscription])
	if err != nil {
		return nil, fmt.Errorf("failed to collect subscription stripe_id=%s: %w", s.StripeSubscriptionID, err)
	}
	return sub, nil
}

// GetCurrentByUser returns the subscription that governs the user: the newest
// one that is not finished, falling back to the newest overall.
func (r *SubscriptionRepository) GetCurrentByUser(ctx context.Context, userID string) (*model.Subscription, error) {
	stmt := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY
			CASE WHEN status IN ('active', 'trialing', 'past_due') THEN 0 ELSE 1 END,
			created_at DESC
		LIMIT 1`

	rows, err := r.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute get current subscription query for user_id=%s: %w", userID, err)
	}

	sub, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Subscription])
	if err != nil {
		return nil, fmt.Errorf("failed to collect current subscription for user_id=%s: %w", userID, err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) GetByStripeID(ctx context.Context, stripeID string) (*model.Subscription, error) {
	rows, err := r.db.Query(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE stripe_subscription_id = $1`, stripeID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute get subscription query for stripe_id=%s: %w", stripeID, err)
	}

	sub, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Subscription])
	if err != nil {
		return nil, fmt.Errorf("failed to collect subscription stripe_id=%s: %w", stripeID, err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]model.Subscription, error) {
	rows, err := r.db.Query(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute list subscriptions query for user_id=%s: %w", userID, err)
	}

	subs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Subscription])
	if err != nil {
		return nil, fmt.Errorf("failed to collect subscriptions for user_id=%s: %w", userID, err)
	}
	return subs, nil
}

// ListExpired returns subscriptions still marked active although they were set
// to cancel and their period ended before cutoff.
func (r *SubscriptionRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]model.Subscription, error) {
	stmt := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status IN ('active', 'trialing')
			AND cancel_at_period_end
			AND current_period_end < $1
		ORDER BY current_period_end`

	rows, err := r.db.Query(ctx, stmt, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to execute list expired subscriptions query: %w", err)
	}

	subs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Subscription])
	if err != nil {
		return nil, fmt.Errorf("failed to collect expired subscriptions: %w", err)
	}
	return subs, nil
}

func (r *SubscriptionRepository) MarkStatus(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus, canceledAt *time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $2, canceled_at = COALESCE($3, canceled_at) WHERE id = $1`,
		id, status, canceledAt)
	if err != nil {
		return fmt.Errorf("failed to mark subscription id=%s as %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription id=%s: %w", id, pgx.ErrNoRows)
	}
	return nil
}
