package job

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ReconcileSchedule is the cron spec for subscription reconciliation.
const ReconcileSchedule = "@hourly"

type enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// Scheduler enqueues periodic tasks. The work itself runs on the asynq
// workers, so a slow run never blocks the scheduler.
type Scheduler struct {
	cron   *cron.Cron
	queue  enqueuer
	logger *zerolog.Logger
}

func NewScheduler(queue enqueuer, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
		queue:  queue,
		logger: logger,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(ReconcileSchedule, s.enqueueReconcile); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", ReconcileSchedule).Msg("started subscription reconcile scheduler")
	return nil
}

// Stop waits for a running enqueue to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) enqueueReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.queue.Enqueue(ctx, NewReconcileSubscriptionsTask())
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		s.logger.Error().Err(err).Msg("failed to enqueue subscription reconcile")
	}
}
