package repositories

import (
	"context"
	"time"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseRepository manages course offerings and their seat counters
type CourseRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Course, error)
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error

	// ReserveSeat increments seats_taken when capacity (and, if requireActive, is_active) allows.
	// It reports false when no seat could be taken.
	ReserveSeat(ctx context.Context, tx *gorm.DB, id uuid.UUID, requireActive bool) (bool, error)
	ReleaseSeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	// DeactivateStartedBefore marks active courses starting before cutoff inactive and returns the count.
	DeactivateStartedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}
