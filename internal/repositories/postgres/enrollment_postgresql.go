package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var enrollmentSortColumns = map[string]bool{
	"enrolled_at": true,
	"status":      true,
	"seat_number": true,
	"updated_at":  true,
}

type EnrollmentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(),
	}
}

func (e *EnrollmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

func (e *EnrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	if err := e.getDB(tx).WithContext(ctx).Create(enrollment).Error; err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

func (e *EnrollmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := e.getDB(tx).WithContext(ctx).
		Preload("Course").
		Preload("Profile").
		First(&enrollment, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) FindActiveByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := e.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND status IN ?", userID, courseID,
			[]models.EnrollmentStatus{models.EnrollmentPending, models.EnrollmentConfirmed}).
		Order("enrolled_at DESC").
		First(&enrollment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active enrollment: %w", err)
	}
	return &enrollment, nil
}

// NextSeatNumber must run in the transaction that reserved the seat
func (e *EnrollmentPostgreSQL) NextSeatNumber(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error) {
	var maxSeat int
	err := e.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(seat_number), 0)").
		Scan(&maxSeat).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute seat number: %w", err)
	}
	return maxSeat + 1, nil
}

func (e *EnrollmentPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to models.EnrollmentStatus, changedAt time.Time) (bool, error) {
	result := e.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":            to,
			"status_changed_at": changedAt,
			"updated_at":        changedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update enrollment status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (e *EnrollmentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*models.Enrollment, error) {
	var enrollments []*models.Enrollment
	err := e.getDB(tx).WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user enrollments: %w", err)
	}
	return enrollments, nil
}

func (e *EnrollmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	db := e.getDB(tx).WithContext(ctx)

	var total int64
	countQuery := e.helpers.ApplyEnrollmentFilters(db.Model(&models.Enrollment{}), filters)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	var enrollments []*models.Enrollment
	query := e.helpers.ApplyEnrollmentFilters(db.Model(&models.Enrollment{}), filters).Preload("Course")
	query = e.helpers.ApplyPaginationAndSort(query, enrollmentSortColumns, "enrolled_at", filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&enrollments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return enrollments, total, nil
}

// ListPending returns pending enrollments, oldest first
func (e *EnrollmentPostgreSQL) ListPending(ctx context.Context, tx *gorm.DB) ([]*models.Enrollment, error) {
	var enrollments []*models.Enrollment
	err := e.getDB(tx).WithContext(ctx).
		Preload("Course").
		Where("status = ?", models.EnrollmentPending).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending enrollments: %w", err)
	}
	return enrollments, nil
}

func (e *EnrollmentPostgreSQL) Stats(ctx context.Context, tx *gorm.DB) (*repositories.EnrollmentStats, error) {
	var rows []struct {
		Status models.EnrollmentStatus
		Count  int64
	}
	err := e.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment stats: %w", err)
	}

	stats := &repositories.EnrollmentStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.EnrollmentConfirmed:
			stats.Confirmed = row.Count
		case models.EnrollmentPending:
			stats.Pending = row.Count
		case models.EnrollmentCancelled:
			stats.Cancelled = row.Count
		}
	}
	return stats, nil
}
