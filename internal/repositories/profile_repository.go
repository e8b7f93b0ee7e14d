package repositories

import (
	"context"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepository stores portal users; emails are matched case-insensitively
type ProfileRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Profile, error)
	GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.Profile, error)
	Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
}
