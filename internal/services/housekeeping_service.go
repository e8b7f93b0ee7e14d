package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinzhu/now"

	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/repositories"
)

type housekeepingService struct {
	repo      repositories.Repository
	publisher events.Publisher
	location  *time.Location
	logger    *slog.Logger
}

func NewHousekeepingService(repo repositories.Repository, publisher events.Publisher, location *time.Location, logger *slog.Logger) HousekeepingService {
	if location == nil {
		location = time.UTC
	}
	return &housekeepingService{
		repo:      repo,
		publisher: publisher,
		location:  location,
		logger:    logger,
	}
}

// DeactivateStartedCourses closes enrollment for courses that started before the local day of at.
func (s *housekeepingService) DeactivateStartedCourses(ctx context.Context, at time.Time) (int64, error) {
	today := now.With(at.In(s.location)).BeginningOfDay()

	count, err := s.repo.Course().DeactivateStartedBefore(ctx, nil, today)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate started courses: %w", err)
	}

	if count > 0 {
		s.logger.Info("Deactivated started courses", "count", count, "cutoff", today.Format("2006-01-02"))
	}
	return count, nil
}

// PublishPendingDigest emails the admin a list of enrollments still awaiting confirmation.
func (s *housekeepingService) PublishPendingDigest(ctx context.Context, at time.Time) (int, error) {
	pending, err := s.repo.Enrollment().ListPending(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending enrollments: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	digest := events.PendingDigest{
		GeneratedAt: at.In(s.location),
		Items:       make([]events.PendingDigestItem, 0, len(pending)),
	}
	for _, e := range pending {
		item := events.PendingDigestItem{
			EnrollmentID: e.ID.String(),
			Name:         e.ContactName,
			Company:      e.Company,
			Email:        e.ContactEmail,
			EnrolledAt:   e.EnrolledAt,
		}
		if e.Course != nil {
			item.CourseTitle = e.Course.Title
		}
		digest.Items = append(digest.Items, item)
	}

	if err := s.publisher.Publish(ctx, events.TopicEnrollmentPendingDigest, digest); err != nil {
		return 0, fmt.Errorf("failed to publish pending digest: %w", err)
	}

	s.logger.Info("Pending digest published", "count", len(pending))
	return len(pending), nil
}
