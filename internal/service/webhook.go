package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/job"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/metrics"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/utils"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
)

const (
	eventCheckoutCompleted      = "checkout.session.completed"
	eventSubscriptionCreated    = "customer.subscription.created"
	eventSubscriptionUpdated    = "customer.subscription.updated"
	eventSubscriptionDeleted    = "customer.subscription.deleted"
	eventInvoicePaid            = "invoice.paid"
	eventInvoicePaymentSucceded = "invoice.payment_succeeded"
	eventInvoicePaymentFailed   = "invoice.payment_failed"
)

// Webhook outcomes, recorded per event type.
const (
	outcomeProcessed = "processed"
	outcomeIgnored   = "ignored"
	outcomeSkipped   = "skipped"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// WebhookResult is the acknowledgement body returned to Stripe.
type WebhookResult struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// WebhookService mirrors Stripe events into subscriptions and payments.
type WebhookService struct {
	repos   *repository.Repositories
	subs    *SubscriptionService
	gateway PaymentGateway
	dedup   Deduplicator
	jobs    Enqueuer
	appURL  string
	logger  *zerolog.Logger
}

func NewWebhookService(
	repos *repository.Repositories,
	subs *SubscriptionService,
	gateway PaymentGateway,
	dedup Deduplicator,
	jobs Enqueuer,
	appURL string,
	logger *zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		repos:   repos,
		subs:    subs,
		gateway: gateway,
		dedup:   dedup,
		jobs:    jobs,
		appURL:  appURL,
		logger:  logger,
	}
}

// HandleStripe verifies and processes one webhook delivery. Each event id is
// processed once; a failed event releases its claim so Stripe's retry runs
// again. Events that reference unknown users are acknowledged.
func (s *WebhookService) HandleStripe(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejected webhook with invalid signature")
		return nil, errs.NewBadRequestError("Invalid webhook signature", true, errs.Code("INVALID_SIGNATURE"), nil, nil)
	}

	eventType := string(event.Type)
	log := s.logger.With().Str("event_id", event.ID).Str("event_type", eventType).Logger()

	claimed := false
	if s.dedup != nil {
		ok, err := s.dedup.Claim(ctx, event.ID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("event de-duplication unavailable, processing anyway")
		case !ok:
			metrics.WebhookEvent(eventType, outcomeDuplicate)
			log.Info().Msg("duplicate webhook event")
			return &WebhookResult{Received: true, Duplicate: true}, nil
		default:
			claimed = true
		}
	}

	outcome, err := s.dispatch(ctx, &log, event)
	if err != nil {
		metrics.WebhookEvent(eventType, outcomeFailed)
		if claimed {
			if relErr := s.dedup.Release(ctx, event.ID); relErr != nil {
				log.Error().Err(relErr).Msg("failed to release webhook event claim")
			}
		}
		return nil, fmt.Errorf("failed to process %s event %s: %w", eventType, event.ID, err)
	}

	metrics.WebhookEvent(eventType, outcome)
	log.Info().Str("outcome", outcome).Msg("webhook event handled")
	return &WebhookResult{Received: true}, nil
}

func (s *WebhookService) dispatch(ctx context.Context, log *zerolog.Logger, event stripe.Event) (string, error) {
	if event.Data == nil {
		return outcomeIgnored, nil
	}

	switch string(event.Type) {
	case eventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return "", fmt.Errorf("failed to decode checkout session: %w", err)
		}
		return s.checkoutCompleted(ctx, log, &session)

	case eventSubscriptionCreated, eventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("failed to decode subscription: %w", err)
		}
		return s.subscriptionChanged(ctx, log, &sub)

	case eventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("failed to decode subscription: %w", err)
		}
		return s.subscriptionDeleted(ctx, log, &sub)

	case eventInvoicePaid, eventInvoicePaymentSucceded, eventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return "", fmt.Errorf("failed to decode invoice: %w", err)
		}
		status := model.PaymentStatusSucceeded
		if string(event.Type) == eventInvoicePaymentFailed {
			status = model.PaymentStatusFailed
		}
		return s.invoice(ctx, log, &inv, status)

	default:
		return outcomeIgnored, nil
	}
}

func (s *WebhookService) checkoutCompleted(ctx context.Context, log *zerolog.Logger, session *stripe.CheckoutSession) (string, error) {
	if session.Mode != stripe.CheckoutSessionModeSubscription || session.Subscription == nil {
		return outcomeIgnored, nil
	}

	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata["user_id"]
	}
	ok, err := s.profileExists(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		log.Warn().Str("user_id", userID).Msg("checkout completed for unknown user")
		return outcomeSkipped, nil
	}

	remote, err := s.gateway.GetSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return "", err
	}
	sub, err := s.subs.mirror(ctx, remote, userID)
	if err != nil {
		if errors.Is(err, errUnknownPrice) {
			log.Error().Err(err).Msg("checkout completed for a price outside the catalog")
			return outcomeSkipped, nil
		}
		return "", err
	}

	if customerID := sub.StripeCustomerID; customerID != "" {
		if err := s.repos.Profile.SetStripeCustomerID(ctx, userID, customerID); err != nil {
			return "", err
		}
	}

	s.subs.notifyActivated(ctx, sub)
	return outcomeProcessed, nil
}

func (s *WebhookService) subscriptionChanged(ctx context.Context, log *zerolog.Logger, remote *stripe.Subscription) (string, error) {
	userID, err := s.subscriptionOwner(ctx, remote)
	if err != nil {
		return "", err
	}
	if userID == "" {
		log.Warn().Str("subscription_id", remote.ID).Msg("subscription event for unknown user")
		return outcomeSkipped, nil
	}

	if _, err := s.subs.mirror(ctx, remote, userID); err != nil {
		if errors.Is(err, errUnknownPrice) {
			log.Error().Err(err).Msg("subscription uses a price outside the catalog")
			return outcomeSkipped, nil
		}
		return "", err
	}
	return outcomeProcessed, nil
}

func (s *WebhookService) subscriptionDeleted(ctx context.Context, log *zerolog.Logger, remote *stripe.Subscription) (string, error) {
	existing, err := s.repos.Subscription.GetByStripeID(ctx, remote.ID)
	if err != nil {
		if isNoRows(err) {
			log.Warn().Str("subscription_id", remote.ID).Msg("deleted subscription was never mirrored")
			return outcomeSkipped, nil
		}
		return "", err
	}

	canceledAt := utils.Ptr(s.endedAt(remote))
	if err := s.repos.Subscription.MarkStatus(ctx, existing.ID, model.SubscriptionStatusCanceled, canceledAt); err != nil {
		return "", err
	}

	s.subs.notifyCanceled(ctx, existing.UserID, existing.PlanID)
	return outcomeProcessed, nil
}

func (s *WebhookService) invoice(ctx context.Context, log *zerolog.Logger, inv *stripe.Invoice, status model.PaymentStatus) (string, error) {
	var local *model.Subscription
	if inv.Subscription != nil && inv.Subscription.ID != "" {
		sub, err := s.repos.Subscription.GetByStripeID(ctx, inv.Subscription.ID)
		switch {
		case err == nil:
			local = sub
		case !isNoRows(err):
			return "", err
		}
	}

	var profile *model.Profile
	if local != nil {
		p, err := s.repos.Profile.GetByID(ctx, local.UserID)
		if err != nil && !isNoRows(err) {
			return "", err
		}
		profile = p
	}
	if profile == nil && inv.Customer != nil && inv.Customer.ID != "" {
		p, err := s.repos.Profile.GetByStripeCustomerID(ctx, inv.Customer.ID)
		if err != nil && !isNoRows(err) {
			return "", err
		}
		profile = p
	}
	if profile == nil {
		log.Warn().Str("invoice_id", inv.ID).Msg("invoice for unknown customer")
		return outcomeSkipped, nil
	}

	amount := inv.AmountPaid
	if status != model.PaymentStatusSucceeded {
		amount = inv.AmountDue
	}

	payment := &model.Payment{
		UserID:          profile.ID,
		StripeInvoiceID: inv.ID,
		AmountCents:     amount,
		Currency:        string(inv.Currency),
		Status:          status,
		Description:     utils.NilIfEmpty(&inv.Description),
		InvoiceURL:      utils.NilIfEmpty(&inv.HostedInvoiceURL),
	}
	if local != nil {
		payment.SubscriptionID = utils.Ptr(local.ID)
	}
	if inv.PaymentIntent != nil && inv.PaymentIntent.ID != "" {
		payment.StripePaymentIntentID = utils.Ptr(inv.PaymentIntent.ID)
	}

	if _, err := s.repos.Payment.Upsert(ctx, payment); err != nil {
		return "", err
	}

	if status == model.PaymentStatusFailed {
		task, err := job.NewPaymentFailedEmailTask(profile.Email, email.PaymentFailedData{
			FullName: profile.FullName,
			Amount:   decimal.New(amount, -2).StringFixed(2),
			Currency: strings.ToUpper(string(inv.Currency)),
			AppURL:   s.appURL,
		})
		enqueue(ctx, s.jobs, s.logger, task, err)
	}
	return outcomeProcessed, nil
}

// subscriptionOwner resolves the user of a Stripe subscription from its
// metadata, then from the profile owning its customer. It returns "" when
// neither matches a profile.
func (s *WebhookService) subscriptionOwner(ctx context.Context, remote *stripe.Subscription) (string, error) {
	if userID := remote.Metadata["user_id"]; userID != "" {
		ok, err := s.profileExists(ctx, userID)
		if err != nil {
			return "", err
		}
		if ok {
			return userID, nil
		}
	}

	if remote.Customer == nil || remote.Customer.ID == "" {
		return "", nil
	}
	profile, err := s.repos.Profile.GetByStripeCustomerID(ctx, remote.Customer.ID)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return profile.ID, nil
}

func (s *WebhookService) profileExists(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if _, err := s.repos.Profile.GetByID(ctx, userID); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// endedAt is when Stripe ended remote, or now when the event omits it.
func (s *WebhookService) endedAt(remote *stripe.Subscription) time.Time {
	for _, sec := range []int64{remote.CanceledAt, remote.EndedAt} {
		if sec > 0 {
			return time.Unix(sec, 0).UTC()
		}
	}
	return s.subs.now().UTC()
}
