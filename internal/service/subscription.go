package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/billing"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/job"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/utils"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
)

// ReconcileGrace is how long after the end of its period a subscription set to
// cancel may stay active locally before reconciliation closes it.
const ReconcileGrace = time.Hour

var errUnknownPrice = errors.New("unknown price")

type SubscriptionService struct {
	repos           *repository.Repositories
	gateway         PaymentGateway
	catalog         *billing.Catalog
	jobs            Enqueuer
	appURL          string
	portalReturnURL string
	logger          *zerolog.Logger
	now             func() time.Time
}

func NewSubscriptionService(
	repos *repository.Repositories,
	gateway PaymentGateway,
	catalog *billing.Catalog,
	jobs Enqueuer,
	appURL, portalReturnURL string,
	logger *zerolog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		repos:           repos,
		gateway:         gateway,
		catalog:         catalog,
		jobs:            jobs,
		appURL:          appURL,
		portalReturnURL: portalReturnURL,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *SubscriptionService) Plans() []billing.Plan {
	return s.catalog.Plans()
}

// Checkout starts a Stripe Checkout Session for planID. The subscription row
// is created later by the webhook.
func (s *SubscriptionService) Checkout(ctx context.Context, userID, planID string) (*model.CheckoutSession, error) {
	plan, err := s.plan(planID)
	if err != nil {
		return nil, err
	}

	profile, err := s.repos.Profile.GetByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, errs.NewBadRequestError("Create your profile before subscribing", true, errs.Code("PROFILE_REQUIRED"), nil, nil)
		}
		return nil, err
	}

	current, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.IsUsable(s.now()) {
		return nil, errs.NewConflictError("You already have an active subscription, change its plan instead", true, errs.Code("SUBSCRIPTION_ALREADY_ACTIVE"))
	}

	customerID := utils.Deref(profile.StripeCustomerID)
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, profile.Email, profile.FullName, userID)
		if err != nil {
			return nil, err
		}
		if err := s.repos.Profile.SetStripeCustomerID(ctx, userID, customerID); err != nil {
			return nil, err
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		UserID:     userID,
		PlanID:     plan.ID,
		PriceID:    plan.PriceID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("plan_id", plan.ID).Str("session_id", session.ID).Msg("checkout session created")
	return &model.CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// Current returns the subscription governing userID.
func (s *SubscriptionService) Current(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errSubscriptionNotFound()
	}
	return sub, nil
}

// ChangePlan swaps the price of the active subscription with proration.
// Downgrades below the number of registered bicycles are rejected.
func (s *SubscriptionService) ChangePlan(ctx context.Context, userID, planID string) (*model.Subscription, error) {
	plan, err := s.plan(planID)
	if err != nil {
		return nil, err
	}

	sub, err := s.usable(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.PlanID == plan.ID {
		return nil, errs.NewBadRequestError("You are already on this plan", true, errs.Code("SAME_PLAN"), nil, nil)
	}

	count, err := s.repos.Bicycle.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count > plan.BicycleLimit {
		return nil, errs.NewBadRequestError(
			fmt.Sprintf("You have %d bicycles registered but the %s plan allows %d", count, plan.Name, plan.BicycleLimit),
			true, errs.Code("PLAN_LIMIT_BELOW_USAGE"), nil, nil)
	}

	remote, err := s.gateway.GetSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	updated, err := s.gateway.ChangePrice(ctx, remote, plan.PriceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("from", sub.PlanID).Str("to", plan.ID).Msg("subscription plan changed")
	return s.repos.Subscription.Upsert(ctx, billing.Mirror(updated, userID, plan))
}

// Cancel schedules the subscription to end with the current period.
func (s *SubscriptionService) Cancel(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.usable(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}
	return s.setCancelAtPeriodEnd(ctx, sub, true)
}

// Resume undoes Cancel while the period has not ended.
func (s *SubscriptionService) Resume(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.usable(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !sub.CancelAtPeriodEnd {
		return sub, nil
	}
	if sub.PeriodEnded(s.now()) {
		return nil, errs.NewBadRequestError("The billing period already ended, start a new subscription", true, errs.Code("SUBSCRIPTION_NOT_RESUMABLE"), nil, plansAction)
	}
	return s.setCancelAtPeriodEnd(ctx, sub, false)
}

// Portal returns a Stripe billing portal session for managing payment methods.
func (s *SubscriptionService) Portal(ctx context.Context, userID string) (*model.RedirectURL, error) {
	profile, err := requireProfile(ctx, s.repos, userID)
	if err != nil {
		return nil, err
	}
	if utils.Deref(profile.StripeCustomerID) == "" {
		return nil, errs.NewBadRequestError("You have no billing account yet", true, errs.Code("NO_BILLING_ACCOUNT"), nil, plansAction)
	}

	url, err := s.gateway.CreatePortalSession(ctx, *profile.StripeCustomerID, s.portalReturnURL)
	if err != nil {
		return nil, err
	}
	return &model.RedirectURL{URL: url}, nil
}

func (s *SubscriptionService) Payments(ctx context.Context, userID string) ([]model.PaymentView, error) {
	payments, err := s.repos.Payment.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]model.PaymentView, len(payments))
	for i := range payments {
		views[i] = model.NewPaymentView(&payments[i])
	}
	return views, nil
}

// ReconcileExpired closes subscriptions that were set to cancel and whose
// period ended more than ReconcileGrace ago, in case the deletion event was
// never delivered. It returns how many were closed.
func (s *SubscriptionService) ReconcileExpired(ctx context.Context) (int, error) {
	expired, err := s.repos.Subscription.ListExpired(ctx, s.now().Add(-ReconcileGrace))
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, sub := range expired {
		if err := s.repos.Subscription.MarkStatus(ctx, sub.ID, model.SubscriptionStatusCanceled, sub.CurrentPeriodEnd); err != nil {
			return closed, err
		}
		closed++

		s.logger.Info().Str("user_id", sub.UserID).Str("subscription_id", sub.StripeSubscriptionID).Msg("closed expired subscription")
		s.notifyCanceled(ctx, sub.UserID, sub.PlanID)
	}
	return closed, nil
}

func (s *SubscriptionService) setCancelAtPeriodEnd(ctx context.Context, sub *model.Subscription, cancel bool) (*model.Subscription, error) {
	updated, err := s.gateway.SetCancelAtPeriodEnd(ctx, sub.StripeSubscriptionID, cancel)
	if err != nil {
		return nil, err
	}

	plan, ok := s.catalog.ByPriceID(billing.PriceID(updated))
	if !ok {
		plan, _ = s.catalog.Get(sub.PlanID)
	}
	return s.repos.Subscription.Upsert(ctx, billing.Mirror(updated, sub.UserID, plan))
}

func (s *SubscriptionService) plan(id string) (billing.Plan, error) {
	plan, ok := s.catalog.Get(id)
	if !ok {
		return billing.Plan{}, errs.NewBadRequestError("Unknown plan", true, errs.Code("INVALID_PLAN"),
			[]errs.FieldError{{Field: "plan_id", Error: "is not a known plan"}}, nil)
	}
	return plan, nil
}

// current returns nil without error when the user never subscribed.
func (s *SubscriptionService) current(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.repos.Subscription.GetCurrentByUser(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) usable(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !sub.IsUsable(s.now()) {
		return nil, errs.NewPaymentRequiredError("You have no active subscription", errs.Code("SUBSCRIPTION_REQUIRED"), plansAction)
	}
	return sub, nil
}

func (s *SubscriptionService) notifyCanceled(ctx context.Context, userID, planID string) {
	profile, err := s.repos.Profile.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load profile for cancellation notification")
		return
	}
	plan, _ := s.catalog.Get(planID)
	task, err := job.NewSubscriptionCanceledEmailTask(profile.Email, email.SubscriptionCanceledData{
		FullName: profile.FullName,
		PlanName: plan.Name,
		AppURL:   s.appURL,
	})
	enqueue(ctx, s.jobs, s.logger, task, err)
}

func (s *SubscriptionService) notifyActivated(ctx context.Context, sub *model.Subscription) {
	profile, err := s.repos.Profile.GetByID(ctx, sub.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sub.UserID).Msg("failed to load profile for activation notification")
		return
	}
	plan, _ := s.catalog.Get(sub.PlanID)
	task, err := job.NewSubscriptionActivatedEmailTask(profile.Email, email.SubscriptionActivatedData{
		FullName:     profile.FullName,
		PlanName:     plan.Name,
		BicycleLimit: sub.BicycleLimit,
		PeriodEnd:    utils.Deref(sub.CurrentPeriodEnd),
		AppURL:       s.appURL,
	})
	enqueue(ctx, s.jobs, s.logger, task, err)
}

// mirror stores remote for userID with the plan resolved from its price.
func (s *SubscriptionService) mirror(ctx context.Context, remote *stripe.Subscription, userID string) (*model.Subscription, error) {
	plan, ok := s.catalog.ByPriceID(billing.PriceID(remote))
	if !ok {
		return nil, fmt.Errorf("subscription %s: %w %q", remote.ID, errUnknownPrice, billing.PriceID(remote))
	}
	return s.repos.Subscription.Upsert(ctx, billing.Mirror(remote, userID, plan))
}

func errSubscriptionNotFound() error {
	return errs.NewNotFoundError("You have no subscription", true, errs.Code("SUBSCRIPTION_NOT_FOUND"))
}
