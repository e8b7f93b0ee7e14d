package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

// errDuplicateSubmission rolls back a reservation made for a profile that already holds a seat
var errDuplicateSubmission = errors.New("duplicate enrollment submission")

// allowedTransitions lists the status changes an admin may make
var allowedTransitions = map[models.EnrollmentStatus][]models.EnrollmentStatus{
	models.EnrollmentPending:   {models.EnrollmentConfirmed, models.EnrollmentCancelled},
	models.EnrollmentConfirmed: {models.EnrollmentCancelled},
	models.EnrollmentCancelled: {models.EnrollmentConfirmed},
}

type enrollmentService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	publisher events.Publisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewEnrollmentService(repo repositories.Repository, cacheManager *cache.CacheManager, publisher events.Publisher, logger *slog.Logger, validator *validator.Validator) EnrollmentService {
	return &enrollmentService{
		repo:      repo,
		cache:     cacheManager,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, req *EnrollRequest, sessionUserID *uuid.UUID) (*EnrollResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	courseID, ok := parseID(req.CourseID)
	if !ok {
		return nil, ErrCourseNotFound
	}

	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	profile, err := s.resolveProfile(ctx, req, sessionUserID)
	if err != nil {
		return nil, err
	}

	// Re-submitting the form must not take a second seat
	existing, err := s.repo.Enrollment().FindActiveByUserAndCourse(ctx, nil, profile.ID, course.ID)
	if err == nil {
		return s.duplicateResponse(existing, course.ID), nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing enrollment: %w", err)
	}

	var enrollment, duplicate *models.Enrollment
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		reserved, err := s.repo.Course().ReserveSeat(ctx, tx, course.ID, true)
		if err != nil {
			return fmt.Errorf("failed to reserve seat: %w", err)
		}
		if !reserved {
			return s.seatUnavailable(ctx, tx, course.ID)
		}

		// The seat update above holds the course row lock, so a parallel submit by the
		// same profile is visible here and rolls this reservation back
		existing, err := s.repo.Enrollment().FindActiveByUserAndCourse(ctx, tx, profile.ID, course.ID)
		if err == nil {
			duplicate = existing
			return errDuplicateSubmission
		}
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check existing enrollment: %w", err)
		}

		seatNumber, err := s.repo.Enrollment().NextSeatNumber(ctx, tx, course.ID)
		if err != nil {
			return fmt.Errorf("failed to assign seat number: %w", err)
		}

		enrollment = &models.Enrollment{
			UserID:       profile.ID,
			CourseID:     course.ID,
			Status:       models.EnrollmentPending,
			AmountPaid:   course.PriceUSD,
			SeatNumber:   seatNumber,
			Company:      strings.TrimSpace(req.Company),
			ContactName:  strings.TrimSpace(req.Name),
			ContactEmail: models.NormalizeEmail(req.Email),
			ContactPhone: strings.TrimSpace(req.Phone),
		}
		if err := s.repo.Enrollment().Create(ctx, tx, enrollment); err != nil {
			return fmt.Errorf("failed to create enrollment: %w", err)
		}
		return nil
	})
	if errors.Is(err, errDuplicateSubmission) {
		return s.duplicateResponse(duplicate, course.ID), nil
	}
	if err != nil {
		return nil, err
	}

	cache.InvalidateCourseCache(ctx, s.cache, course.ID.String())

	s.logger.Info("Enrollment created",
		"enrollment_id", enrollment.ID,
		"course_id", course.ID,
		"seat_number", enrollment.SeatNumber)

	s.publish(ctx, events.TopicEnrollmentRequested, events.EnrollmentRequested{
		EnrollmentID:    enrollment.ID.String(),
		SeatNumber:      enrollment.SeatNumber,
		CourseID:        course.ID.String(),
		CourseTitle:     course.Title,
		CourseStandard:  course.Standard,
		CourseStartDate: course.StartTime(),
		CourseFormat:    course.Format,
		PriceUSD:        course.PriceUSD,
		Name:            enrollment.ContactName,
		Company:         enrollment.Company,
		Email:           enrollment.ContactEmail,
		Phone:           enrollment.ContactPhone,
	})

	return &EnrollResponse{
		Success:      true,
		EnrollmentID: enrollment.ID.String(),
		SeatNumber:   enrollment.SeatNumber,
	}, nil
}

func (s *enrollmentService) UpdateStatus(ctx context.Context, id string, req *UpdateEnrollmentStatusRequest, actorID uuid.UUID) (*EnrollmentResponse, error) {
	if _, err := requireAdmin(ctx, s.repo, actorID, "enrollment", "update_status"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	enrollmentID, ok := parseID(id)
	if !ok {
		return nil, ErrEnrollmentNotFound
	}

	enrollment, err := s.getEnrollment(ctx, nil, enrollmentID)
	if err != nil {
		return nil, err
	}

	from, to := enrollment.Status, req.Status
	if from == to {
		return NewEnrollmentResponse(enrollment), nil
	}
	if !canTransition(from, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	changedAt := s.now().UTC()
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		changed, err := s.repo.Enrollment().UpdateStatus(ctx, tx, enrollment.ID, from, to, changedAt)
		if err != nil {
			return fmt.Errorf("failed to update enrollment status: %w", err)
		}
		if !changed {
			return ErrEnrollmentConflict
		}

		switch {
		case from.HoldsSeat() && !to.HoldsSeat():
			if err := s.repo.Course().ReleaseSeat(ctx, tx, enrollment.CourseID); err != nil {
				return fmt.Errorf("failed to release seat: %w", err)
			}
		case !from.HoldsSeat() && to.HoldsSeat():
			// Re-confirming is bound by capacity only; the course may have closed since
			reserved, err := s.repo.Course().ReserveSeat(ctx, tx, enrollment.CourseID, false)
			if err != nil {
				return fmt.Errorf("failed to reserve seat: %w", err)
			}
			if !reserved {
				return ErrCourseFull
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateCourseCache(ctx, s.cache, enrollment.CourseID.String())

	s.logger.Info("Enrollment status changed",
		"enrollment_id", enrollment.ID,
		"from", from,
		"to", to,
		"actor_id", actorID)

	enrollment.Status = to
	enrollment.StatusChangedAt = &changedAt

	payload := events.EnrollmentStatusChanged{
		EnrollmentID: enrollment.ID.String(),
		Name:         enrollment.ContactName,
		Email:        enrollment.ContactEmail,
		From:         string(from),
		To:           string(to),
	}
	if enrollment.Course != nil {
		payload.CourseTitle = enrollment.Course.Title
		payload.CourseStartDate = enrollment.Course.StartTime()
	}
	if payload.Email == "" && enrollment.Profile != nil {
		payload.Email = enrollment.Profile.Email
		payload.Name = enrollment.Profile.DisplayName()
	}
	s.publish(ctx, events.TopicEnrollmentStatusChanged, payload)

	return NewEnrollmentResponse(enrollment), nil
}

// ===== HELPERS =====

// resolveProfile picks the signed-in user, then a profile with the submitted email, and
// finally creates a passwordless student profile for first-time visitors.
func (s *enrollmentService) resolveProfile(ctx context.Context, req *EnrollRequest, sessionUserID *uuid.UUID) (*models.Profile, error) {
	if sessionUserID != nil {
		profile, err := s.repo.Profile().GetByID(ctx, nil, *sessionUserID)
		if err == nil {
			return profile, nil
		}
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to load session profile: %w", err)
		}
	}

	email := models.NormalizeEmail(req.Email)
	profile, err := s.repo.Profile().GetByEmail(ctx, nil, email)
	if err == nil {
		return profile, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	profile = &models.Profile{
		Email:    email,
		FullName: strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Role:     models.RoleStudent,
	}
	if err := s.repo.Profile().Create(ctx, nil, profile); err != nil {
		// Another request created it first
		if repositories.IsDuplicateKeyError(err) {
			return s.repo.Profile().GetByEmail(ctx, nil, email)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("Profile created from enrollment", "profile_id", profile.ID)
	return profile, nil
}

func (s *enrollmentService) duplicateResponse(existing *models.Enrollment, courseID uuid.UUID) *EnrollResponse {
	s.logger.Info("Duplicate enrollment submission", "enrollment_id", existing.ID, "course_id", courseID)
	return &EnrollResponse{
		Success:      true,
		EnrollmentID: existing.ID.String(),
		SeatNumber:   existing.SeatNumber,
		Duplicate:    true,
	}
}

// seatUnavailable explains why ReserveSeat took no seat.
func (s *enrollmentService) seatUnavailable(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	course, err := s.repo.Course().GetByID(ctx, tx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("failed to reload course: %w", err)
	}
	if !course.IsActive {
		return ErrCourseNotOpen
	}
	return ErrCourseFull
}

func (s *enrollmentService) getEnrollment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Enrollment, error) {
	enrollment, err := s.repo.Enrollment().GetByID(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

// publish logs instead of failing: the row is already committed.
func (s *enrollmentService) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Error("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func canTransition(from, to models.EnrollmentStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
