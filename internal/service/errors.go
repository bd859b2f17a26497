package service

import (
	"context"
	"errors"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var plansAction = &errs.Action{
	Type:    errs.ActionTypeRedirect,
	Message: "See plans",
	Value:   "/plans",
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func errProfileNotFound() error {
	return errs.NewNotFoundError("Profile not found", true, errs.Code("PROFILE_NOT_FOUND"))
}

// requireProfile loads the profile of userID or fails with 404.
func requireProfile(ctx context.Context, repos *repository.Repositories, userID string) (*model.Profile, error) {
	profile, err := repos.Profile.GetByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, errProfileNotFound()
		}
		return nil, err
	}
	return profile, nil
}

func errBicycleNotFound() error {
	return errs.NewNotFoundError("Bicycle not found", true, errs.Code("BICYCLE_NOT_FOUND"))
}

func errSerialTaken() error {
	return errs.NewConflictError("A bicycle with this serial number is already registered", true, errs.Code("BICYCLE_ALREADY_EXISTS"))
}

// enqueue submits a notification task. Notifications never fail the request
// that triggered them.
func enqueue(ctx context.Context, jobs Enqueuer, logger *zerolog.Logger, task *asynq.Task, err error) {
	if err == nil {
		err = jobs.Enqueue(ctx, task)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to enqueue notification")
	}
}
