package postgres

import (
	"context"
	"fmt"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"gorm.io/gorm"
)

type InquiryPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewInquiryPostgreSQL(db *gorm.DB) repositories.InquiryRepository {
	return &InquiryPostgreSQL{db: db, helpers: NewSharedHelpers()}
}

func (i *InquiryPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return i.db
}

func (i *InquiryPostgreSQL) Create(ctx context.Context, tx *gorm.DB, inquiry *models.ConsultingInquiry) error {
	if err := i.getDB(tx).WithContext(ctx).Create(inquiry).Error; err != nil {
		return fmt.Errorf("failed to create consulting inquiry: %w", err)
	}
	return nil
}

func (i *InquiryPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.InquiryFilters) ([]*models.ConsultingInquiry, int64, error) {
	db := i.getDB(tx).WithContext(ctx)

	var total int64
	if err := i.helpers.ApplyInquiryFilters(db.Model(&models.ConsultingInquiry{}), filters).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count consulting inquiries: %w", err)
	}

	var inquiries []*models.ConsultingInquiry
	query := i.helpers.ApplyInquiryFilters(db.Model(&models.ConsultingInquiry{}), filters)
	query = i.helpers.ApplyPaginationAndSort(query, map[string]bool{"created_at": true}, "created_at", "", "desc", filters.Limit, filters.Offset)
	if err := query.Find(&inquiries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list consulting inquiries: %w", err)
	}

	return inquiries, total, nil
}
