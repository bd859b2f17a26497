package service

import (
	"context"
	"strings"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/job"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/metrics"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/utils"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/sqlerr"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const activeTheftReportConstraint = "theft_reports_one_active_idx"

type TheftService struct {
	repos     *repository.Repositories
	tx        repository.Transactor
	jobs      Enqueuer
	publicURL string
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewTheftService(repos *repository.Repositories, jobs Enqueuer, publicURL string, logger *zerolog.Logger) *TheftService {
	return &TheftService{
		repos:     repos,
		tx:        repos,
		jobs:      jobs,
		publicURL: publicURL,
		logger:    logger,
		now:       time.Now,
	}
}

// Report files a theft report for an owned bicycle and flags the bicycle as
// stolen. A bicycle has at most one active report.
func (s *TheftService) Report(ctx context.Context, userID string, bicycleID uuid.UUID, req *model.CreateTheftReportRequest) (*model.TheftReport, error) {
	bicycle, err := s.repos.Bicycle.GetOwned(ctx, bicycleID, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, errBicycleNotFound()
		}
		return nil, err
	}

	if _, err := s.repos.TheftReport.GetActiveByBicycle(ctx, bicycleID); err == nil {
		return nil, errActiveReportExists()
	} else if !isNoRows(err) {
		return nil, err
	}

	var report *model.TheftReport
	err = s.tx.WithTx(ctx, func(tx *repository.Repositories) error {
		var err error
		report, err = tx.TheftReport.Create(ctx, &model.TheftReport{
			BicycleID:          bicycleID,
			UserID:             userID,
			TheftDate:          req.TheftDate.UTC(),
			Location:           strings.TrimSpace(req.Location),
			Description:        strings.TrimSpace(req.Description),
			PoliceReportNumber: utils.NilIfEmpty(req.PoliceReportNumber),
			Status:             model.TheftStatusActive,
		})
		if err != nil {
			return err
		}
		return tx.Bicycle.SetStolen(ctx, bicycleID, true)
	})
	if err != nil {
		if sqlerr.IsUniqueViolation(err, activeTheftReportConstraint) {
			return nil, errActiveReportExists()
		}
		return nil, err
	}

	metrics.TheftReport(string(model.TheftStatusActive))
	s.logger.Info().Str("bicycle_id", bicycleID.String()).Str("report_id", report.ID.String()).Msg("theft reported")

	if profile, err := s.repos.Profile.GetByID(ctx, userID); err != nil {
		s.logger.Error().Err(err).Msg("failed to load profile for theft notification")
	} else {
		task, err := job.NewTheftReportedEmailTask(profile.Email, email.TheftReportedData{
			FullName:     profile.FullName,
			SerialNumber: bicycle.SerialNumber,
			Brand:        bicycle.Brand,
			Model:        bicycle.Model,
			TheftDate:    report.TheftDate,
			Location:     report.Location,
			VerifyURL:    utils.VerifyURL(s.publicURL, bicycle.SerialNumber),
		})
		enqueue(ctx, s.jobs, s.logger, task, err)
	}

	return report, nil
}

func (s *TheftService) List(ctx context.Context, userID string) ([]model.TheftReportWithBicycle, error) {
	reports, err := s.repos.TheftReport.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []model.TheftReportWithBicycle{}
	}
	return reports, nil
}

// UpdateStatus closes an active report as recovered or closed and clears the
// stolen flag of the bicycle.
func (s *TheftService) UpdateStatus(ctx context.Context, userID string, id uuid.UUID, status model.TheftStatus) (*model.TheftReport, error) {
	current, err := s.repos.TheftReport.GetOwned(ctx, id, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, errs.NewNotFoundError("Theft report not found", true, errs.Code("THEFT_REPORT_NOT_FOUND"))
		}
		return nil, err
	}
	if current.Status != model.TheftStatusActive {
		return nil, errReportNotActive()
	}

	var recoveredAt *time.Time
	if status == model.TheftStatusRecovered {
		recoveredAt = utils.Ptr(s.now().UTC())
	}

	var report *model.TheftReport
	err = s.tx.WithTx(ctx, func(tx *repository.Repositories) error {
		var err error
		report, err = tx.TheftReport.UpdateStatus(ctx, id, status, recoveredAt)
		if err != nil {
			return err
		}
		return tx.Bicycle.SetStolen(ctx, current.BicycleID, false)
	})
	if err != nil {
		if isNoRows(err) {
			return nil, errReportNotActive()
		}
		return nil, err
	}

	metrics.TheftReport(string(status))
	return report, nil
}

func errActiveReportExists() error {
	return errs.NewConflictError("This bicycle already has an active theft report", true, errs.Code("THEFT_REPORT_ALREADY_EXISTS"))
}

func errReportNotActive() error {
	return errs.NewConflictError("Only active theft reports can be updated", true, errs.Code("THEFT_REPORT_NOT_ACTIVE"))
}
