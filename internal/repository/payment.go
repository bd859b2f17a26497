package repository

import (
	"context"
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository struct {
	db DBTX
}

const paymentColumns = `id, user_id, subscription_id, stripe_invoice_id, stripe_payment_intent_id, amount_cents, currency, status, description, invoice_url, created_at`

// Upsert records an invoice outcome keyed by stripe_invoice_id. A succeeded
// payment is never downgraded by a late failure event.
func (r *PaymentRepository) Upsert(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	stmt := `
		INSERT INTO payments (
			user_id, subscription_id, stripe_invoice_id, stripe_payment_intent_id,
			amount_cents, currency, status, description, invoice_url
		) VALUES (
			@user_id, @subscription_id, @stripe_invoice_id, @stripe_payment_intent_id,
			@amount_cents, @currency, @status, @description, @invoice_url
		)
		ON CONFLICT (stripe_invoice_id) DO UPDATE SET
			subscription_id = COALESCE(EXCLUDED.subscription_id, payments.subscription_id),
			stripe_payment_intent_id = COALESCE(EXCLUDED.stripe_payment_intent_id, payments.stripe_payment_intent_id),
			amount_cents = EXCLUDED.amount_cents,
			currency = EXCLUDED.currency,
			status = CASE WHEN payments.status = 'succeeded' THEN payments.status ELSE EXCLUDED.status END,
			description = COALESCE(EXCLUDED.description, payments.description),
			invoice_url = COALESCE(EXCLUDED.invoice_url, payments.invoice_url)
		RETURNING ` + paymentColumns

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"user_id":                  p.UserID,
		"subscription_id":          p.SubscriptionID,
		"stripe_invoice_id":        p.StripeInvoiceID,
		"stripe_payment_intent_id": p.StripePaymentIntentID,
		"amount_cents":             p.AmountCents,
		"currency":                 p.Currency,
		"status":                   p.Status,
		"description":              p.Description,
		"invoice_url":              p.InvoiceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute upsert payment query for invoice=%s: %w", p.StripeInvoiceID, err)
	}

	payment, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Payment])
	if err != nil {
		return nil, fmt.Errorf("failed to collect payment invoice=%s: %w", p.StripeInvoiceID, err)
	}
	return payment, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute list payments query for user_id=%s: %w", userID, err)
	}

	payments, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Payment])
	if err != nil {
		return nil, fmt.Errorf("failed to collect payments for user_id=%s: %w", userID, err)
	}
	return payments, nil
}
