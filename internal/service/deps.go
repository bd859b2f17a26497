package service

import (
	"context"
	"io"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/billing"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

// Enqueuer submits background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// ObjectStore is the object storage the bicycle photos and invoices live in.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64, contentType string) error
	Delete(ctx context.Context, bucket, key string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PublicURL(bucket, key string) string
}

// PaymentGateway is the part of Stripe the subscription flows use.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email, name, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, p billing.CheckoutParams) (*stripe.CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	ChangePrice(ctx context.Context, sub *stripe.Subscription, priceID string) (*stripe.Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*stripe.Subscription, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// UserDirectory looks up identity data held by the auth provider.
type UserDirectory interface {
	PrimaryEmail(ctx context.Context, userID string) (string, error)
}

// Deduplicator claims event ids so each is processed once.
type Deduplicator interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}
