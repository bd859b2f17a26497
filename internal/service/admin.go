package service

import (
	"context"
	"strings"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
)

type AdminService struct {
	repos *repository.Repositories
}

func NewAdminService(repos *repository.Repositories) *AdminService {
	return &AdminService{repos: repos}
}

func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	return s.repos.Stats.Get(ctx)
}

func (s *AdminService) SearchBicycles(ctx context.Context, req *model.SearchBicyclesRequest) (*model.Page[model.BicycleSearchResult], error) {
	return s.repos.Bicycle.Search(ctx, strings.TrimSpace(req.Q), req.Page, req.Limit)
}

func (s *AdminService) ListTheftReports(ctx context.Context, req *model.ListTheftReportsRequest) (*model.Page[model.TheftReportWithBicycle], error) {
	return s.repos.TheftReport.ListAll(ctx, req.Status, req.Page, req.Limit)
}
