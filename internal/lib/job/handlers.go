package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/metrics"
	"github.com/hibiken/asynq"
)

// EmailSender is implemented by *email.Client.
type EmailSender interface {
	SendWelcomeEmail(ctx context.Context, to string, data email.WelcomeData) error
	SendBicycleRegisteredEmail(ctx context.Context, to string, data email.BicycleRegisteredData) error
	SendTheftReportedEmail(ctx context.Context, to string, data email.TheftReportedData) error
	SendSubscriptionActivatedEmail(ctx context.Context, to string, data email.SubscriptionActivatedData) error
	SendSubscriptionCanceledEmail(ctx context.Context, to string, data email.SubscriptionCanceledData) error
	SendPaymentFailedEmail(ctx context.Context, to string, data email.PaymentFailedData) error
}

// handleEmail decodes an EmailPayload[T] and hands it to send. Malformed
// payloads are not retried.
func handleEmail[T any](j *JobService, send func(ctx context.Context, to string, data T) error) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p EmailPayload[T]
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			metrics.TaskProcessed(t.Type(), false)
			return fmt.Errorf("failed to unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}

		log := j.logger.With().Str("type", t.Type()).Str("to", p.To).Logger()
		log.Info().Msg("processing email task")

		if err := send(ctx, p.To, p.Data); err != nil {
			metrics.TaskProcessed(t.Type(), false)
			log.Error().Err(err).Msg("failed to send email")
			return err
		}

		metrics.TaskProcessed(t.Type(), true)
		log.Info().Msg("successfully sent email")
		return nil
	}
}

func (j *JobService) sendWelcome(ctx context.Context, to string, data email.WelcomeData) error {
	return j.emails.SendWelcomeEmail(ctx, to, data)
}

func (j *JobService) sendBicycleRegistered(ctx context.Context, to string, data email.BicycleRegisteredData) error {
	return j.emails.SendBicycleRegisteredEmail(ctx, to, data)
}

func (j *JobService) sendTheftReported(ctx context.Context, to string, data email.TheftReportedData) error {
	return j.emails.SendTheftReportedEmail(ctx, to, data)
}

func (j *JobService) sendSubscriptionActivated(ctx context.Context, to string, data email.SubscriptionActivatedData) error {
	return j.emails.SendSubscriptionActivatedEmail(ctx, to, data)
}

func (j *JobService) sendSubscriptionCanceled(ctx context.Context, to string, data email.SubscriptionCanceledData) error {
	return j.emails.SendSubscriptionCanceledEmail(ctx, to, data)
}

func (j *JobService) sendPaymentFailed(ctx context.Context, to string, data email.PaymentFailedData) error {
	return j.emails.SendPaymentFailedEmail(ctx, to, data)
}

func (j *JobService) handleReconcileSubscriptions(ctx context.Context, t *asynq.Task) error {
	count, err := j.reconciler.ReconcileExpired(ctx)
	if err != nil {
		metrics.TaskProcessed(t.Type(), false)
		return fmt.Errorf("failed to reconcile subscriptions: %w", err)
	}

	metrics.TaskProcessed(t.Type(), true)
	j.logger.Info().Int("canceled", count).Msg("reconciled expired subscriptions")
	return nil
}
