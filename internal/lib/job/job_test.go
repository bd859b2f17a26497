package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmails struct {
	welcome    []string
	registered []email.BicycleRegisteredData
	theft      []email.TheftReportedData
	err        error
}

func (f *fakeEmails) SendWelcomeEmail(_ context.Context, to string, _ email.WelcomeData) error {
	f.welcome = append(f.welcome, to)
	return f.err
}

func (f *fakeEmails) SendBicycleRegisteredEmail(_ context.Context, _ string, data email.BicycleRegisteredData) error {
	f.registered = append(f.registered, data)
	return f.err
}

func (f *fakeEmails) SendTheftReportedEmail(_ context.Context, _ string, data email.TheftReportedData) error {
	f.theft = append(f.theft, data)
	return f.err
}

func (f *fakeEmails) SendSubscriptionActivatedEmail(context.Context, string, email.SubscriptionActivatedData) error {
	return f.err
}

func (f *fakeEmails) SendSubscriptionCanceledEmail(context.Context, string, email.SubscriptionCanceledData) error {
	return f.err
}

func (f *fakeEmails) SendPaymentFailedEmail(context.Context, string, email.PaymentFailedData) error {
	return f.err
}

type fakeReconciler struct {
	calls int
	err   error
}

func (f *fakeReconciler) ReconcileExpired(context.Context) (int, error) {
	f.calls++
	return 2, f.err
}

func newTestJobService(emails EmailSender, reconciler Reconciler) *JobService {
	logger := zerolog.Nop()
	return &JobService{logger: &logger, emails: emails, reconciler: reconciler}
}

func TestEmailTasks_RouteToSender(t *testing.T) {
	emails := &fakeEmails{}
	mux := newTestJobService(emails, &fakeReconciler{}).NewServeMux()

	welcome, err := NewWelcomeEmailTask("ana@example.com", email.WelcomeData{FullName: "Ana"})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), welcome))

	theftDate := time.Date(2026, 5, 2, 18, 30, 0, 0, time.UTC)
	theft, err := NewTheftReportedEmailTask("ana@example.com", email.TheftReportedData{SerialNumber: "WTU123", TheftDate: theftDate})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), theft))

	assert.Equal(t, []string{"ana@example.com"}, emails.welcome)
	require.Len(t, emails.theft, 1)
	assert.Equal(t, "WTU123", emails.theft[0].SerialNumber)
	assert.True(t, theftDate.Equal(emails.theft[0].TheftDate))
}

func TestEmailTask_Payload(t *testing.T) {
	task, err := NewBicycleRegisteredEmailTask("ana@example.com", email.BicycleRegisteredData{SerialNumber: "WTU123"})
	require.NoError(t, err)
	assert.Equal(t, TaskBicycleRegisteredEmail, task.Type())

	var p EmailPayload[email.BicycleRegisteredData]
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "ana@example.com", p.To)
	assert.Equal(t, "WTU123", p.Data.SerialNumber)
}

func TestEmailTask_MalformedPayloadSkipsRetry(t *testing.T) {
	mux := newTestJobService(&fakeEmails{}, &fakeReconciler{}).NewServeMux()

	err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskWelcomeEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestEmailTask_SendErrorIsRetried(t *testing.T) {
	boom := errors.New("provider down")
	mux := newTestJobService(&fakeEmails{err: boom}, &fakeReconciler{}).NewServeMux()

	task, err := NewWelcomeEmailTask("ana@example.com", email.WelcomeData{})
	require.NoError(t, err)

	err = mux.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestReconcileTask(t *testing.T) {
	reconciler := &fakeReconciler{}
	mux := newTestJobService(&fakeEmails{}, reconciler).NewServeMux()

	require.NoError(t, mux.ProcessTask(context.Background(), NewReconcileSubscriptionsTask()))
	assert.Equal(t, 1, reconciler.calls)

	reconciler.err = errors.New("db down")
	assert.Error(t, mux.ProcessTask(context.Background(), NewReconcileSubscriptionsTask()))
}

type recordingQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task *asynq.Task) error {
	q.tasks = append(q.tasks, task)
	return q.err
}

func TestScheduler_EnqueueReconcile(t *testing.T) {
	queue := &recordingQueue{}
	logger := zerolog.Nop()
	s := NewScheduler(queue, &logger)

	s.enqueueReconcile()

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, TaskReconcileSubscriptions, queue.tasks[0].Type())

	queue.err = asynq.ErrDuplicateTask
	s.enqueueReconcile()
	assert.Len(t, queue.tasks, 2)
}

func TestScheduler_StartStop(t *testing.T) {
	logger := zerolog.Nop()
	s := NewScheduler(&recordingQueue{}, &logger)

	require.NoError(t, s.Start())
	require.Len(t, s.cron.Entries(), 1)
	assert.True(t, s.cron.Entries()[0].Next.After(time.Now()))
	s.Stop()
}
