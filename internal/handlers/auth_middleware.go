package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
)

// AuthMiddleware resolves the caller from the session cookie or a Casdoor bearer token
type AuthMiddleware struct {
	sessions    *auth.SessionManager
	casdoor     *auth.CasdoorVerifier
	authService services.AuthService
	logger      utils.Logger
}

// NewAuthMiddleware creates the middleware. casdoor may be nil when hosted identity is off.
func NewAuthMiddleware(sessions *auth.SessionManager, casdoor *auth.CasdoorVerifier, authService services.AuthService, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:    sessions,
		casdoor:     casdoor,
		authService: authService,
		logger:      logger,
	}
}

// Authenticate attaches the caller to the context when credentials are present.
// Anonymous requests continue without user info.
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if profile := am.resolve(c); profile != nil {
			c.Set("user_id", profile.ID)
			c.Set("user", profile)
			c.Set("user_role", profile.Role)
			c.Set("user_email", profile.Email)
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a signed-in caller
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "Unauthorized",
				Message: "Please sign in to continue",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects signed-in callers that are not staff
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("user_role")
		if r, ok := role.(models.UserRole); !ok || r != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error:   "Forbidden",
				Message: "admin role required",
				Details: gin.H{"redirect": services.DefaultRedirect},
			})
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) resolve(c *gin.Context) *models.Profile {
	ctx := c.Request.Context()
	logger := utils.GetLogger(c, am.logger)

	if token, ok := auth.BearerToken(c.GetHeader("Authorization")); ok && am.casdoor != nil {
		identity, err := am.casdoor.Verify(token)
		if err != nil {
			logger.Warn("Rejected bearer token", "error", err)
			return nil
		}
		profile, err := am.authService.SyncIdentity(ctx, identity)
		if err != nil {
			logger.Error("Failed to sync hosted identity", "error", err, "email", identity.Email)
			return nil
		}
		return profile
	}

	userID, ok := am.sessions.CurrentUserID(c.Request)
	if !ok {
		return nil
	}
	profile, err := am.authService.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, services.ErrProfileNotFound) {
			logger.Error("Failed to load session profile", "error", err, "user_id", userID)
		}
		return nil
	}
	return profile
}
