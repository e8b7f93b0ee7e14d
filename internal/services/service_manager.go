package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

// ServiceManagerConfig holds the dependencies shared by the services
type ServiceManagerConfig struct {
	Repo         repositories.Repository
	CacheManager *cache.CacheManager
	Publisher    events.Publisher
	MagicLinks   *auth.MagicLinkIssuer

	// PublicBaseURL prefixes links sent by email
	PublicBaseURL string
	// Location is the business timezone used by scheduled jobs
	Location *time.Location
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	catalogService      CatalogService
	enrollmentService   EnrollmentService
	consultService      ConsultService
	authService         AuthService
	dashboardService    DashboardService
	adminService        AdminService
	housekeepingService HousekeepingService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(config ServiceManagerConfig, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	if config.CacheManager == nil {
		config.CacheManager = cache.NewCacheManager(nil)
	}
	return &serviceManager{
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() error {
	cfg := sm.config
	if cfg.Repo == nil {
		return fmt.Errorf("repository is required")
	}
	if cfg.Publisher == nil {
		return fmt.Errorf("event publisher is required")
	}
	if cfg.MagicLinks == nil {
		return fmt.Errorf("magic link issuer is required")
	}

	sm.catalogService = NewCatalogService(cfg.Repo, cfg.CacheManager, sm.logger, sm.validator)
	sm.enrollmentService = NewEnrollmentService(cfg.Repo, cfg.CacheManager, cfg.Publisher, sm.logger, sm.validator)
	sm.consultService = NewConsultService(cfg.Repo, cfg.Publisher, sm.logger, sm.validator)
	sm.authService = NewAuthService(cfg.Repo, cfg.MagicLinks, cfg.Publisher, cfg.PublicBaseURL, sm.logger, sm.validator)
	sm.dashboardService = NewDashboardService(cfg.Repo, sm.logger)
	sm.adminService = NewAdminService(cfg.Repo, sm.logger, sm.validator)
	sm.housekeepingService = NewHousekeepingService(cfg.Repo, cfg.Publisher, cfg.Location, sm.logger)

	return nil
}

func (sm *serviceManager) ready() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Service getters
func (sm *serviceManager) Catalog() CatalogService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.catalogService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.enrollmentService
}

func (sm *serviceManager) Consult() ConsultService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.consultService
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.authService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.dashboardService
}

func (sm *serviceManager) Admin() AdminService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.adminService
}

func (sm *serviceManager) Housekeeping() HousekeepingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.housekeepingService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.config.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.config.Publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
