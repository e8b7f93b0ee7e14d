package postgres

import (
	"context"
	"fmt"

	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfilePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewProfilePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ProfileRepository {
	return &ProfilePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (p *ProfilePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// GetByID is called on every authenticated request, so non-transactional reads are cached.
// The cached copy never carries the password hash.
func (p *ProfilePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Profile, error) {
	fetch := func() (interface{}, error) {
		var profile models.Profile
		if err := p.getDB(tx).WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		return &profile, nil
	}

	if tx != nil {
		profile, err := fetch()
		if err != nil {
			return nil, err
		}
		return profile.(*models.Profile), nil
	}

	var profile models.Profile
	if err := p.cacheManager.Profile.CacheOrExecute(ctx, "id:"+id.String(), &profile, cache.ProfileCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p *ProfilePostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Profile, error) {
	var profile models.Profile
	err := p.getDB(tx).WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}
	return &profile, nil
}

func (p *ProfilePostgreSQL) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.Profile, error) {
	var profile models.Profile
	err := p.getDB(tx).WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by external id: %w", err)
	}
	return &profile, nil
}

func (p *ProfilePostgreSQL) Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	if err := p.getDB(tx).WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (p *ProfilePostgreSQL) Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	profile.Email = models.NormalizeEmail(profile.Email)

	// Credentials are only written when set; cached copies arrive without them
	columns := []interface{}{"full_name", "phone", "role", "updated_at"}
	if profile.PasswordHash != nil {
		columns = append(columns, "password_hash")
	}
	if profile.ExternalID != nil {
		columns = append(columns, "external_id")
	}

	err := p.getDB(tx).WithContext(ctx).
		Model(profile).
		Select("email", columns...).
		Updates(profile).Error
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	cache.InvalidateProfileCache(ctx, p.cacheManager, profile.ID.String())
	return nil
}
