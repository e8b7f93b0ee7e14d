package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
)

// HandlerManagerConfig holds what the HTTP layer needs besides the services
type HandlerManagerConfig struct {
	Sessions *auth.SessionManager
	// Casdoor is nil when hosted identity is not configured
	Casdoor *auth.CasdoorVerifier
	// RateLimiter counts public form submissions; nil or unavailable disables limiting
	RateLimiter        *cache.CacheHelper
	RateLimitPerMinute int
}

type HandlerManager struct {
	courseHandler     *CourseHandler
	enrollmentHandler *EnrollmentHandler
	consultHandler    *ConsultHandler
	authHandler       *AuthHandler
	dashboardHandler  *DashboardHandler
	adminHandler      *AdminHandler
	authMiddleware    *AuthMiddleware
	rateLimit         gin.HandlerFunc
	health            func(ctx context.Context) error
}

func NewHandlerManager(serviceManager services.ServiceManager, config HandlerManagerConfig, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		courseHandler:     NewCourseHandler(serviceManager.Catalog(), logger),
		enrollmentHandler: NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		consultHandler:    NewConsultHandler(serviceManager.Consult(), logger),
		authHandler:       NewAuthHandler(serviceManager.Auth(), config.Sessions, logger),
		dashboardHandler:  NewDashboardHandler(serviceManager.Dashboard(), logger),
		adminHandler: NewAdminHandler(
			serviceManager.Admin(),
			serviceManager.Enrollment(),
			serviceManager.Catalog(),
			logger,
		),
		authMiddleware: NewAuthMiddleware(config.Sessions, config.Casdoor, serviceManager.Auth(), logger),
		rateLimit:      RateLimitMiddleware(config.RateLimiter, config.RateLimitPerMinute, logger),
		health:         serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(hm.authMiddleware.Authenticate())
	{
		// Public catalog
		api.GET("/courses", hm.courseHandler.ListCourses)
		api.GET("/courses/:id", hm.courseHandler.GetCourse)

		// Public forms
		api.POST("/enroll", hm.rateLimit, hm.enrollmentHandler.Enroll)
		api.POST("/consult", hm.rateLimit, hm.consultHandler.Submit)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", hm.rateLimit, hm.authHandler.SignUp)
			authRoutes.POST("/login", hm.rateLimit, hm.authHandler.Login)
			authRoutes.POST("/magic-link", hm.rateLimit, hm.authHandler.RequestMagicLink)
			authRoutes.GET("/magic-link/verify", hm.authHandler.VerifyMagicLink)
			authRoutes.POST("/logout", hm.authHandler.Logout)
			authRoutes.GET("/me", hm.authMiddleware.RequireAuth(), hm.authHandler.Me)
		}

		// Student dashboard - any signed-in user
		api.GET("/dashboard", hm.authMiddleware.RequireAuth(), hm.dashboardHandler.GetDashboard)

		// Admin routes - staff only
		admin := api.Group("/admin")
		admin.Use(hm.authMiddleware.RequireAuth(), hm.authMiddleware.RequireAdmin())
		{
			admin.GET("/overview", hm.adminHandler.Overview)
			admin.PATCH("/enrollments/:id/status", hm.adminHandler.UpdateEnrollmentStatus)
			admin.GET("/enrollments/export", hm.adminHandler.ExportEnrollments)
			admin.GET("/inquiries", hm.adminHandler.ListInquiries)
			admin.POST("/courses", hm.adminHandler.CreateCourse)
			admin.PUT("/courses/:id", hm.adminHandler.UpdateCourse)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := hm.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "amqms-portal",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "amqms-portal",
		})
	})
}
