package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregates every repository used by the services
type Repository interface {
	Course() CourseRepository
	Enrollment() EnrollmentRepository
	Profile() ProfileRepository
	Inquiry() InquiryRepository

	// WithTransaction runs fn inside a database transaction; pass tx to every repository call in fn
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
