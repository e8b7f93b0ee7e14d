package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alrena-group/amqms-portal/internal/repositories"
)

type dashboardService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		logger: logger,
	}
}

// GetDashboard returns the student's own enrollments, newest first.
func (s *dashboardService) GetDashboard(ctx context.Context, userID uuid.UUID) (*DashboardResponse, error) {
	profile, err := s.repo.Profile().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if profile.IsAdmin() {
		return nil, ErrAdminRedirect
	}

	enrollments, err := s.repo.Enrollment().ListByUser(ctx, nil, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return &DashboardResponse{
		Profile:     NewProfileResponse(profile),
		FirstName:   profile.FirstName(),
		Enrollments: NewEnrollmentResponses(enrollments),
	}, nil
}
