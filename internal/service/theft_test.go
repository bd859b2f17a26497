package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/job"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type theftFixture struct {
	svc   *TheftService
	db    *memDB
	queue *recordingQueue
}

func newTheftFixture(t *testing.T) *theftFixture {
	t.Helper()
	repos, db := newMemRepos()
	queue := &recordingQueue{}
	svc := NewTheftService(repos, queue, "https://bikereg.test", nopLogger())
	svc.tx = &memTx{repos: repos, db: db}
	return &theftFixture{svc: svc, db: db, queue: queue}
}

func theftRequest() *model.CreateTheftReportRequest {
	return &model.CreateTheftReportRequest{
		TheftDate:   time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
		Location:    " Parque México, CDMX ",
		Description: "Taken from the bike rack outside the cafe",
	}
}

func TestReportMarksBicycleStolen(t *testing.T) {
	f := newTheftFixture(t)
	f.db.addProfile("user_1", "ana@example.com", "Ana")
	b := f.db.addBicycle("user_1", "WTU123")

	report, err := f.svc.Report(context.Background(), "user_1", b.ID, theftRequest())
	require.NoError(t, err)

	assert.Equal(t, model.TheftStatusActive, report.Status)
	assert.Equal(t, "Parque México, CDMX", report.Location)
	assert.True(t, f.db.bicycles[b.ID].IsStolen)
	assert.Equal(t, 1, f.db.txCount)
	assert.Equal(t, []string{job.TaskTheftReportedEmail}, f.queue.types())
}

func TestReportRejectsSecondActiveReport(t *testing.T) {
	f := newTheftFixture(t)
	f.db.addProfile("user_1", "ana@example.com", "Ana")
	b := f.db.addBicycle("user_1", "WTU123")

	_, err := f.svc.Report(context.Background(), "user_1", b.ID, theftRequest())
	require.NoError(t, err)

	_, err = f.svc.Report(context.Background(), "user_1", b.ID, theftRequest())
	requireHTTPError(t, err, http.StatusConflict, "THEFT_REPORT_ALREADY_EXISTS")
}

func TestReportRequiresOwnership(t *testing.T) {
	f := newTheftFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")

	_, err := f.svc.Report(context.Background(), "user_2", b.ID, theftRequest())
	requireHTTPError(t, err, http.StatusNotFound, "BICYCLE_NOT_FOUND")
}

func TestReportPropagatesTransactionFailure(t *testing.T) {
	f := newTheftFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")
	f.db.failStole = errors.New("connection reset")

	_, err := f.svc.Report(context.Background(), "user_1", b.ID, theftRequest())
	require.Error(t, err)
	assert.Empty(t, f.queue.types())
}

func TestUpdateStatusRecovered(t *testing.T) {
	f := newTheftFixture(t)
	f.db.addProfile("user_1", "ana@example.com", "Ana")
	b := f.db.addBicycle("user_1", "WTU123")
	report, err := f.svc.Report(context.Background(), "user_1", b.ID, theftRequest())
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), "user_1", report.ID, model.TheftStatusRecovered)
	require.NoError(t, err)

	assert.Equal(t, model.TheftStatusRecovered, updated.Status)
	require.NotNil(t, updated.RecoveredAt)
	assert.False(t, f.db.bicycles[b.ID].IsStolen)

	_, err = f.svc.UpdateStatus(context.Background(), "user_1", report.ID, model.TheftStatusClosed)
	requireHTTPError(t, err, http.StatusConflict, "THEFT_REPORT_NOT_ACTIVE")
}

func TestUpdateStatusClosedLeavesRecoveredAtEmpty(t *testing.T) {
	f := newTheftFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")
	report, err := f.svc.Report(context.Background(), "user_1", b.ID, theftRequest())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), "user_2", report.ID, model.TheftStatusClosed)
	requireHTTPError(t, err, http.StatusNotFound, "THEFT_REPORT_NOT_FOUND")

	updated, err := f.svc.UpdateStatus(context.Background(), "user_1", report.ID, model.TheftStatusClosed)
	require.NoError(t, err)
	assert.Nil(t, updated.RecoveredAt)
	assert.False(t, f.db.bicycles[b.ID].IsStolen)
}

func TestListReturnsEmptySlice(t *testing.T) {
	f := newTheftFixture(t)

	reports, err := f.svc.List(context.Background(), "user_1")
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}
