package repositories

import (
	"context"
	"time"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrollmentRepository manages seat reservations made by profiles
type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Enrollment, error)

	// FindActiveByUserAndCourse returns the pending or confirmed enrollment a profile holds for a course.
	FindActiveByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*models.Enrollment, error)
	NextSeatNumber(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error)

	// UpdateStatus moves an enrollment from one status to another and reports false if it was no longer in from.
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to models.EnrollmentStatus, changedAt time.Time) (bool, error)

	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*models.Enrollment, error)
	List(ctx context.Context, tx *gorm.DB, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
	ListPending(ctx context.Context, tx *gorm.DB) ([]*models.Enrollment, error)
	Stats(ctx context.Context, tx *gorm.DB) (*EnrollmentStats, error)
}
