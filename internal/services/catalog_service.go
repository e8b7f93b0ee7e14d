package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

type catalogService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCatalogService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator) CatalogService {
	return &catalogService{
		repo:      repo,
		cache:     cacheManager,
		logger:    logger,
		validator: validator,
	}
}

func (s *catalogService) ListActive(ctx context.Context) ([]*CourseResponse, error) {
	courses, err := s.repo.Course().ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	responses := make([]*CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses, nil
}

func (s *catalogService) GetCourse(ctx context.Context, id string) (*CourseResponse, error) {
	courseID, ok := parseID(id)
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

	return NewCourseResponse(course), nil
}

func (s *catalogService) CreateCourse(ctx context.Context, req *CreateCourseRequest, actorID uuid.UUID) (*CourseResponse, error) {
	if _, err := requireAdmin(ctx, s.repo, actorID, "course", "create"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:        strings.TrimSpace(req.Title),
		Standard:     strings.TrimSpace(req.Standard),
		Description:  strings.TrimSpace(req.Description),
		StartDate:    datatypes.Date(req.StartDate),
		DurationDays: req.DurationDays,
		Format:       strings.TrimSpace(req.Format),
		PriceUSD:     req.PriceUSD,
		SeatsTotal:   req.SeatsTotal,
		IsActive:     true,
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}

	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created", "course_id", course.ID, "title", course.Title, "actor_id", actorID)
	return NewCourseResponse(course), nil
}

func (s *catalogService) UpdateCourse(ctx context.Context, id string, req *UpdateCourseRequest, actorID uuid.UUID) (*CourseResponse, error) {
	if _, err := requireAdmin(ctx, s.repo, actorID, "course", "update"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	courseID, ok := parseID(id)
	if !ok {
		return nil, ErrCourseNotFound
	}

	// Read inside the transaction so seats_taken is current, not a cached copy
	var course *models.Course
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		course, err = s.repo.Course().GetByID(ctx, tx, courseID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("failed to get course: %w", err)
		}

		applyCourseUpdate(course, req)

		if course.SeatsTotal < course.SeatsTaken {
			return NewBusinessRuleError("seats_total_below_taken",
				"Total seats cannot be lower than seats already taken",
				map[string]interface{}{"seats_taken": course.SeatsTaken, "seats_total": course.SeatsTotal})
		}

		if err := s.repo.Course().Update(ctx, tx, course); err != nil {
			return fmt.Errorf("failed to update course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateCourseCache(ctx, s.cache, course.ID.String())

	s.logger.Info("Course updated", "course_id", course.ID, "actor_id", actorID)
	return NewCourseResponse(course), nil
}

func applyCourseUpdate(course *models.Course, req *UpdateCourseRequest) {
	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Standard != nil {
		course.Standard = strings.TrimSpace(*req.Standard)
	}
	if req.Description != nil {
		course.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartDate != nil {
		course.StartDate = datatypes.Date(*req.StartDate)
	}
	if req.DurationDays != nil {
		course.DurationDays = *req.DurationDays
	}
	if req.Format != nil {
		course.Format = strings.TrimSpace(*req.Format)
	}
	if req.PriceUSD != nil {
		course.PriceUSD = *req.PriceUSD
	}
	if req.SeatsTotal != nil {
		course.SeatsTotal = *req.SeatsTotal
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}
}
