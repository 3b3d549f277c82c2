package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Miompolly/capstone/internal/middleware"
	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/internal/services"
)

// AuthHandler handles registration, login and account management endpoints
type AuthHandler struct {
	service      services.AuthServiceInterface
	ttlSeconds   int
	cookieDomain string
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service services.AuthServiceInterface, ttlHours int, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		service:      service,
		ttlSeconds:   ttlHours * 3600,
		cookieDomain: cookieDomain,
		cookieSecure: cookieSecure,
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request body",
			ParseValidationErrors(bindErr), bindErr)
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			respondError(c, http.StatusConflict, "Email already registered", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to register", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
// Sets the session cookie on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request body",
			ParseValidationErrors(bindErr), bindErr)
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "Invalid email or password", err)
		case errors.Is(err, services.ErrUserInactive):
			respondError(c, http.StatusForbidden, "Account is not yet verified", err)
		default:
			respondError(c, http.StatusInternalServerError, "Failed to log in", err)
		}
		return
	}

	middleware.SetSessionCookie(c, token, h.ttlSeconds, h.cookieDomain, h.cookieSecure)

	c.JSON(http.StatusOK, user)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.cookieDomain, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /api/v1/auth/me
// Returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch profile", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// VerifyUser handles POST /api/v1/admin/users/:id/verify
// Activates a pending account.
func (h *AuthHandler) VerifyUser(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	user, err := h.service.VerifyUser(c.Request.Context(), session, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found", err)
		case errors.Is(err, services.ErrAccessDenied):
			respondError(c, http.StatusForbidden, "Access denied", err)
		default:
			respondError(c, http.StatusInternalServerError, "Failed to verify user", err)
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers handles GET /api/v1/admin/users
// Optionally filtered by ?role=.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	role := c.Query("role")
	if role != "" && role != models.RoleAdmin && role != models.RoleMentor && role != models.RoleMentee {
		respondError(c, http.StatusBadRequest, "Invalid role filter. Must be one of: admin, mentor, mentee", nil)
		return
	}

	response, err := h.service.ListUsers(c.Request.Context(), session, role)
	if err != nil {
		if errors.Is(err, services.ErrAccessDenied) {
			respondError(c, http.StatusForbidden, "Access denied", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	c.JSON(http.StatusOK, response)
}
