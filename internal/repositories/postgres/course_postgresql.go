package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (c *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

// GetByID retrieves a course. Reads outside a transaction go through the cache.
func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error) {
	fetch := func() (interface{}, error) {
		var course models.Course
		if err := c.getDB(tx).WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		return &course, nil
	}

	if tx != nil {
		course, err := fetch()
		if err != nil {
			return nil, err
		}
		return course.(*models.Course), nil
	}

	var course models.Course
	if err := c.cacheManager.Course.CacheOrExecute(ctx, "id:"+id.String(), &course, cache.CourseCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListActive returns open courses ordered by start date
func (c *CoursePostgreSQL) ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Course, error) {
	var courses []*models.Course

	err := c.cacheManager.Course.CacheOrExecute(ctx, "list:active", &courses, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourses []*models.Course
		err := c.getDB(tx).WithContext(ctx).
			Where("is_active = ?", true).
			Order("start_date ASC").
			Order("title ASC").
			Find(&dbCourses).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list active courses: %w", err)
		}
		return dbCourses, nil
	})
	if err != nil {
		return nil, err
	}

	return courses, nil
}

func (c *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := c.getDB(tx).WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	cache.InvalidateCourseCache(ctx, c.cacheManager, course.ID.String())
	return nil
}

func (c *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	err := c.getDB(tx).WithContext(ctx).
		Model(course).
		Select("title", "standard", "description", "start_date", "duration_days", "format", "price_usd", "seats_total", "is_active", "updated_at").
		Updates(course).Error
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	cache.InvalidateCourseCache(ctx, c.cacheManager, course.ID.String())
	return nil
}

// ReserveSeat takes one seat with a single conditional UPDATE. Under PostgreSQL the row
// lock it acquires is held until the surrounding transaction ends.
func (c *CoursePostgreSQL) ReserveSeat(ctx context.Context, tx *gorm.DB, id uuid.UUID, requireActive bool) (bool, error) {
	query := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND seats_taken < seats_total", id)
	if requireActive {
		query = query.Where("is_active = ?", true)
	}

	result := query.Updates(map[string]interface{}{
		"seats_taken": gorm.Expr("seats_taken + 1"),
		"updated_at":  time.Now(),
	})
	if result.Error != nil {
		return false, fmt.Errorf("failed to reserve seat: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (c *CoursePostgreSQL) ReleaseSeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	err := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND seats_taken > 0", id).
		Updates(map[string]interface{}{
			"seats_taken": gorm.Expr("seats_taken - 1"),
			"updated_at":  time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	return nil
}

func (c *CoursePostgreSQL) DeactivateStartedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	// Compare on the calendar date of cutoff in its own location
	result := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("is_active = ? AND start_date < ?", true, cutoff.Format("2006-01-02")).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate past courses: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		cache.InvalidateCatalog(ctx, c.cacheManager)
	}

	return result.RowsAffected, nil
}
