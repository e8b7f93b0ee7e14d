package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// requireAdmin loads the acting profile and rejects anyone who is not staff.
func requireAdmin(ctx context.Context, repo repositories.Repository, actorID uuid.UUID, resource, action string) (*models.Profile, error) {
	profile, err := repo.Profile().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load acting profile: %w", err)
	}

	if !profile.IsAdmin() {
		return nil, NewPermissionError(actorID.String(), "", resource, action, "admin role required")
	}

	return profile, nil
}

// normalizePage clamps page and size to sane values and returns the row offset.
func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, (page - 1) * size
}

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
