package postgres

import (
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"gorm.io/gorm"
)

// SharedHelpers contains common query building used by several repositories
type SharedHelpers struct{}

func NewSharedHelpers() *SharedHelpers {
	return &SharedHelpers{}
}

// ApplyEnrollmentFilters applies the optional enrollment filters
func (h *SharedHelpers) ApplyEnrollmentFilters(query *gorm.DB, filters repositories.EnrollmentFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	return query
}

// ApplyInquiryFilters applies the optional inquiry filters
func (h *SharedHelpers) ApplyInquiryFilters(query *gorm.DB, filters repositories.InquiryFilters) *gorm.DB {
	if filters.Standard != nil {
		query = query.Where("standard = ?", *filters.Standard)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting against a whitelist of columns
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, allowed map[string]bool, defaultSort, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy == "" || !allowed[sortBy] {
		sortBy = defaultSort
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	// Tie-break on id so pages are stable
	query = query.Order(sortBy + " " + sortOrder).Order("id " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
