// Package job runs background work on asynq: transactional emails and the
// periodic subscription reconciliation.
package job

import (
	"context"
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/config"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/metrics"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Reconciler closes subscriptions whose provider events were missed.
type Reconciler interface {
	ReconcileExpired(ctx context.Context) (int, error)
}

type JobService struct {
	Client *asynq.Client

	server     *asynq.Server
	scheduler  *Scheduler
	logger     *zerolog.Logger
	emails     EmailSender
	reconciler Reconciler
}

func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Error().Err(err).
					Str("task", task.Type()).
					Int("retry", retried).
					Int("max_retry", maxRetry).
					Msg("background task failed")
			}),
		},
	)

	j := &JobService{
		Client: client,
		server: server,
		logger: logger,
	}
	j.scheduler = NewScheduler(j, logger)
	return j
}

// InitHandlers sets the dependencies the task handlers need. It must be called
// before Start.
func (j *JobService) InitHandlers(emails EmailSender, reconciler Reconciler) {
	j.emails = emails
	j.reconciler = reconciler
}

// Enqueue submits task and counts it. Enqueue failures are returned to the
// caller, which decides whether they are fatal.
func (j *JobService) Enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}

	metrics.TaskEnqueued(task.Type())
	j.logger.Debug().Str("task", task.Type()).Str("task_id", info.ID).Str("queue", info.Queue).Msg("task enqueued")
	return nil
}

// NewServeMux routes every task type to its handler.
func (j *JobService) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleEmail(j, j.sendWelcome))
	mux.HandleFunc(TaskBicycleRegisteredEmail, handleEmail(j, j.sendBicycleRegistered))
	mux.HandleFunc(TaskTheftReportedEmail, handleEmail(j, j.sendTheftReported))
	mux.HandleFunc(TaskSubscriptionActivatedEmail, handleEmail(j, j.sendSubscriptionActivated))
	mux.HandleFunc(TaskSubscriptionCanceledEmail, handleEmail(j, j.sendSubscriptionCanceled))
	mux.HandleFunc(TaskPaymentFailedEmail, handleEmail(j, j.sendPaymentFailed))
	mux.HandleFunc(TaskReconcileSubscriptions, j.handleReconcileSubscriptions)
	return mux
}

// Start launches the worker pool and the scheduler. Both run in the
// background until Stop.
func (j *JobService) Start() error {
	if j.emails == nil || j.reconciler == nil {
		return fmt.Errorf("job handlers not initialized")
	}

	j.logger.Info().Msg("starting background job server")
	if err := j.server.Start(j.NewServeMux()); err != nil {
		return fmt.Errorf("failed to start job server: %w", err)
	}

	if err := j.scheduler.Start(); err != nil {
		j.server.Shutdown()
		return err
	}
	return nil
}

func (j *JobService) Stop() {
	j.logger.Info().Msg("stopping background job server")
	j.scheduler.Stop()
	j.server.Shutdown()
	if err := j.Client.Close(); err != nil {
		j.logger.Error().Err(err).Msg("failed to close job client")
	}
}
