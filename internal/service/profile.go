package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/job"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/utils"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/rs/zerolog"
)

type ProfileService struct {
	repos  *repository.Repositories
	users  UserDirectory
	jobs   Enqueuer
	appURL string
	logger *zerolog.Logger
}

func NewProfileService(repos *repository.Repositories, users UserDirectory, jobs Enqueuer, appURL string, logger *zerolog.Logger) *ProfileService {
	return &ProfileService{
		repos:  repos,
		users:  users,
		jobs:   jobs,
		appURL: appURL,
		logger: logger,
	}
}

// Create stores the profile of userID. Calling it again returns the existing
// profile with created=false.
func (s *ProfileService) Create(ctx context.Context, userID string, req *model.CreateProfileRequest) (*model.Profile, bool, error) {
	address := strings.TrimSpace(req.Email)
	if address == "" {
		var err error
		address, err = s.users.PrimaryEmail(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("could not resolve email from auth provider")
			return nil, false, errs.NewBadRequestError("Email is required", true, errs.Code("EMAIL_REQUIRED"),
				[]errs.FieldError{{Field: "email", Error: "is required"}}, nil)
		}
	}

	profile, created, err := s.repos.Profile.Create(ctx, &model.Profile{
		ID:       userID,
		Email:    strings.ToLower(address),
		FullName: strings.TrimSpace(req.FullName),
		Phone:    utils.NilIfEmpty(req.Phone),
		Role:     model.RoleUser,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create profile: %w", err)
	}

	if created {
		task, err := job.NewWelcomeEmailTask(profile.Email, email.WelcomeData{
			FullName: profile.FullName,
			AppURL:   s.appURL,
		})
		enqueue(ctx, s.jobs, s.logger, task, err)
	}
	return profile, created, nil
}

// Get returns the profile with its current subscription and bicycle count.
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.ProfileWithSubscription, error) {
	profile, err := requireProfile(ctx, s.repos, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repos.Subscription.GetCurrentByUser(ctx, userID)
	switch {
	case isNoRows(err):
		sub = nil
	case err != nil:
		return nil, err
	}

	count, err := s.repos.Bicycle.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.ProfileWithSubscription{
		Profile:      profile,
		Subscription: sub,
		BicycleCount: count,
	}, nil
}

func (s *ProfileService) Update(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.Profile, error) {
	var fullName *string
	if req.FullName != nil {
		fullName = utils.Ptr(strings.TrimSpace(*req.FullName))
	}

	profile, err := s.repos.Profile.Update(ctx, userID, repository.ProfileUpdate{
		FullName:   fullName,
		Phone:      trimmed(req.Phone),
		Address:    trimmed(req.Address),
		City:       trimmed(req.City),
		State:      trimmed(req.State),
		PostalCode: trimmed(req.PostalCode),
	})
	if err != nil {
		if isNoRows(err) {
			return nil, errProfileNotFound()
		}
		return nil, err
	}
	return profile, nil
}
