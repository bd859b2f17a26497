package repository

import (
	"context"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/google/uuid"
)

type ProfileStore interface {
	Create(ctx context.Context, p *model.Profile) (*model.Profile, bool, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error)
	Update(ctx context.Context, id string, u ProfileUpdate) (*model.Profile, error)
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
}

type BicycleStore interface {
	Create(ctx context.Context, b *model.Bicycle) (*model.Bicycle, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Bicycle, error)
	GetOwned(ctx context.Context, id uuid.UUID, userID string) (*model.Bicycle, error)
	GetBySerial(ctx context.Context, serial string) (*model.Bicycle, error)
	ListByUser(ctx context.Context, userID string) ([]model.Bicycle, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, id uuid.UUID, userID string, u BicycleUpdate) (*model.Bicycle, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	SetStolen(ctx context.Context, id uuid.UUID, stolen bool) error
	SetInvoicePath(ctx context.Context, id uuid.UUID, path string) error
	Search(ctx context.Context, q string, page, limit int) (*model.Page[model.BicycleSearchResult], error)
}

type BicycleImageStore interface {
	Create(ctx context.Context, img *model.BicycleImage) (*model.BicycleImage, error)
	ListByBicycle(ctx context.Context, bicycleID uuid.UUID) ([]model.BicycleImage, error)
	ListByBicycles(ctx context.Context, bicycleIDs []uuid.UUID) ([]model.BicycleImage, error)
	CountByBicycle(ctx context.Context, bicycleID uuid.UUID) (int, error)
	GetOwned(ctx context.Context, id, bicycleID uuid.UUID, userID string) (*model.BicycleImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TheftReportStore interface {
	Create(ctx context.Context, t *model.TheftReport) (*model.TheftReport, error)
	GetOwned(ctx context.Context, id uuid.UUID, userID string) (*model.TheftReport, error)
	GetActiveByBicycle(ctx context.Context, bicycleID uuid.UUID) (*model.TheftReport, error)
	ListByUser(ctx context.Context, userID string) ([]model.TheftReportWithBicycle, error)
	ListAll(ctx context.Context, status string, page, limit int) (*model.Page[model.TheftReportWithBicycle], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.TheftStatus, recoveredAt *time.Time) (*model.TheftReport, error)
}

type SubscriptionStore interface {
	Upsert(ctx context.Context, s *model.Subscription) (*model.Subscription, error)
	GetCurrentByUser(ctx context.Context, userID string) (*model.Subscription, error)
	GetByStripeID(ctx context.Context, stripeID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]model.Subscription, error)
	ListExpired(ctx context.Context, cutoff time.Time) ([]model.Subscription, error)
	MarkStatus(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus, canceledAt *time.Time) error
}

type PaymentStore interface {
	Upsert(ctx context.Context, p *model.Payment) (*model.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Payment, error)
}

type StatsStore interface {
	Get(ctx context.Context) (*model.Stats, error)
}

// Transactor runs fn with repositories bound to one transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *Repositories) error) error
}
