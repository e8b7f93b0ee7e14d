package repositories

import (
	"time"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/google/uuid"
)

// ===== SHARED FILTER STRUCTS =====

type EnrollmentFilters struct {
	Status    *models.EnrollmentStatus `json:"status"`
	UserID    *uuid.UUID               `json:"user_id"`
	CourseID  *uuid.UUID               `json:"course_id"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "enrolled_at", "status", "seat_number"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

type InquiryFilters struct {
	Standard *string    `json:"standard"`
	DateFrom *time.Time `json:"date_from"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type EnrollmentStats struct {
	Total     int64 `json:"total"`
	Confirmed int64 `json:"confirmed"`
	Pending   int64 `json:"pending"`
	Cancelled int64 `json:"cancelled"`
}
