package job

import (
	"encoding/json"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/hibiken/asynq"
)

const (
	TaskWelcomeEmail               = "email:welcome"
	TaskBicycleRegisteredEmail     = "email:bicycle_registered"
	TaskTheftReportedEmail         = "email:theft_reported"
	TaskSubscriptionActivatedEmail = "email:subscription_activated"
	TaskSubscriptionCanceledEmail  = "email:subscription_canceled"
	TaskPaymentFailedEmail         = "email:payment_failed"
	TaskReconcileSubscriptions     = "subscription:reconcile"
)

// EmailPayload is the JSON stored in Redis for every email task.
type EmailPayload[T any] struct {
	To   string `json:"to"`
	Data T      `json:"data"`
}

func newEmailTask[T any](taskType, queue, to string, data T) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailPayload[T]{To: to, Data: data})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		taskType,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue(queue),
		asynq.Timeout(30*time.Second),
	), nil
}

func NewWelcomeEmailTask(to string, data email.WelcomeData) (*asynq.Task, error) {
	return newEmailTask(TaskWelcomeEmail, QueueDefault, to, data)
}

func NewBicycleRegisteredEmailTask(to string, data email.BicycleRegisteredData) (*asynq.Task, error) {
	return newEmailTask(TaskBicycleRegisteredEmail, QueueDefault, to, data)
}

func NewTheftReportedEmailTask(to string, data email.TheftReportedData) (*asynq.Task, error) {
	return newEmailTask(TaskTheftReportedEmail, QueueCritical, to, data)
}

func NewSubscriptionActivatedEmailTask(to string, data email.SubscriptionActivatedData) (*asynq.Task, error) {
	return newEmailTask(TaskSubscriptionActivatedEmail, QueueDefault, to, data)
}

func NewSubscriptionCanceledEmailTask(to string, data email.SubscriptionCanceledData) (*asynq.Task, error) {
	return newEmailTask(TaskSubscriptionCanceledEmail, QueueDefault, to, data)
}

func NewPaymentFailedEmailTask(to string, data email.PaymentFailedData) (*asynq.Task, error) {
	return newEmailTask(TaskPaymentFailedEmail, QueueCritical, to, data)
}

// NewReconcileSubscriptionsTask is unique per hour so overlapping schedulers
// do not pile up duplicate runs.
func NewReconcileSubscriptionsTask() *asynq.Task {
	return asynq.NewTask(
		TaskReconcileSubscriptions,
		nil,
		asynq.MaxRetry(1),
		asynq.Queue(QueueLow),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(time.Hour),
	)
}
