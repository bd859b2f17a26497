// Package service contains the business logic.
//
// It sits between the handler and repository layers. It receives validated
// requests from the handlers, enforces ownership and plan limits, and
// orchestrates the repositories and the external clients (Stripe, object
// storage, the job queue).
package service

import (
	"fmt"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/billing"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/certificate"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/idempotency"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/job"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/storage"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
)

// StripeEventTTL bounds how long processed webhook event ids are remembered.
const StripeEventTTL = 48 * time.Hour

type Services struct {
	Auth         *AuthService
	Profile      *ProfileService
	Bicycle      *BicycleService
	Certificate  *CertificateService
	Theft        *TheftService
	Subscription *SubscriptionService
	Webhook      *WebhookService
	Admin        *AdminService

	Job     *job.JobService
	Email   *email.Client
	Storage *storage.Client
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	cfg := s.Config

	catalog, err := billing.LoadCatalog(cfg.Stripe.PriceIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load plan catalog: %w", err)
	}

	authService := NewAuthService(s)
	stripeClient := billing.NewStripe(cfg.Stripe)
	storageClient := storage.NewClient(cfg.Storage, s.Logger)
	emailClient := email.NewClient(cfg, s.Logger)
	events := idempotency.NewStore(s.Redis, "stripe:event:", StripeEventTTL)

	subscriptions := NewSubscriptionService(repos, stripeClient, catalog, s.Job, cfg.App.PublicURL, cfg.Stripe.PortalReturnURL, s.Logger)

	return &Services{
		Auth:         authService,
		Profile:      NewProfileService(repos, authService, s.Job, cfg.App.PublicURL, s.Logger),
		Bicycle:      NewBicycleService(repos, storageClient, s.Job, NewBicycleConfig(cfg), s.Logger),
		Certificate:  NewCertificateService(repos, certificate.NewSigner(cfg.App.CertificateSigningKey), cfg.App.PublicURL),
		Theft:        NewTheftService(repos, s.Job, cfg.App.PublicURL, s.Logger),
		Subscription: subscriptions,
		Webhook:      NewWebhookService(repos, subscriptions, stripeClient, events, s.Job, cfg.App.PublicURL, s.Logger),
		Admin:        NewAdminService(repos),
		Job:          s.Job,
		Email:        emailClient,
		Storage:      storageClient,
	}, nil
}
