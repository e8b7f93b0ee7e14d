package repositories

import (
	"context"

	"github.com/alrena-group/amqms-portal/internal/models"
	"gorm.io/gorm"
)

type InquiryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, inquiry *models.ConsultingInquiry) error
	List(ctx context.Context, tx *gorm.DB, filters InquiryFilters) ([]*models.ConsultingInquiry, int64, error)
}
