package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
)

// Where a failed magic link lands; the login page renders the error
const magicLinkFailedRedirect = "/login?error=link_invalid"

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	sessions    *auth.SessionManager
}

func NewAuthHandler(authService services.AuthService, sessions *auth.SessionManager, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		sessions:    sessions,
	}
}

// SignUp creates a password account and signs it in
// @Summary Sign up
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.SignUpRequest true "Account details"
// @Success 201 {object} services.ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.authService.SignUp(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if !h.startSession(c, profile) {
		return
	}
	c.JSON(http.StatusCreated, services.NewProfileResponse(profile))
}

// Login signs in with email and password
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginRequest true "Credentials"
// @Success 200 {object} services.ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if !h.startSession(c, profile) {
		return
	}
	c.JSON(http.StatusOK, services.NewProfileResponse(profile))
}

// RequestMagicLink emails a one-time sign-in link. The answer does not reveal
// whether the address already had an account.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req services.MagicLinkRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.authService.RequestMagicLink(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": true})
}

// VerifyMagicLink consumes the emailed token and redirects into the portal
func (h *AuthHandler) VerifyMagicLink(c *gin.Context) {
	profile, redirect, err := h.authService.VerifyMagicLink(c.Request.Context(), c.Query("token"))
	if err != nil {
		utils.GetLogger(c, h.logger).Warn("Magic link rejected", "error", err)
		c.Redirect(http.StatusSeeOther, magicLinkFailedRedirect)
		return
	}

	if !h.startSession(c, profile) {
		return
	}
	c.Redirect(http.StatusSeeOther, redirect)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Clear(c.Writer, c.Request); err != nil {
		h.LogError(c, err, "Failed to clear session")
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the signed-in profile
func (h *AuthHandler) Me(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Unauthorized",
			Message: "Please sign in to continue",
		})
		return
	}
	c.JSON(http.StatusOK, services.NewProfileResponse(profile))
}

func (h *AuthHandler) startSession(c *gin.Context, profile *models.Profile) bool {
	if err := h.sessions.Start(c.Writer, c.Request, profile.ID); err != nil {
		h.LogError(c, err, "Failed to start session", "user_id", profile.ID)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   genericErrorMessage,
			Message: genericErrorMessage,
		})
		return false
	}
	h.LogRequest(c, "Session started", "user_id", profile.ID)
	return true
}
