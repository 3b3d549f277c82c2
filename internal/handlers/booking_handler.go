package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Miompolly/capstone/internal/middleware"
	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/internal/services"
)

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	service services.BookingServiceInterface
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(service services.BookingServiceInterface) *BookingHandler {
	return &BookingHandler{
		service: service,
	}
}

// parseBookingID extracts and validates the :id route parameter
func parseBookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid booking ID", err)
		return 0, false
	}
	return id, true
}

// parseStatusFilter reads the optional comma-separated status query parameter
func parseStatusFilter(c *gin.Context) ([]models.BookingStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}

	statuses := []models.BookingStatus{}
	for _, part := range strings.Split(raw, ",") {
		status := models.BookingStatus(strings.TrimSpace(part))
		if !status.IsValid() {
			respondError(c, http.StatusBadRequest,
				"Invalid status filter. Must be one of: pending, approved, denied, cancelled", nil)
			return nil, false
		}
		statuses = append(statuses, status)
	}
	return statuses, true
}

// CreateBooking handles POST /api/v1/bookings
// A mentee requests a session with a mentor.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var req models.CreateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request body",
			ParseValidationErrors(bindErr), bindErr)
		return
	}

	booking, err := h.service.CreateBooking(c.Request.Context(), session, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMentorNotFound):
			respondError(c, http.StatusNotFound, "Mentor not found", err)
		case errors.Is(err, services.ErrInvalidTimeRange):
			respondError(c, http.StatusBadRequest, "Start time must be before end time", err)
		case errors.Is(err, services.ErrAccessDenied):
			respondError(c, http.StatusForbidden, "Access denied", err)
		default:
			respondError(c, http.StatusInternalServerError, "Failed to create booking", err)
		}
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(c.Request.Context(), session, id)
	if err != nil {
		h.handleBookingError(c, err, "Failed to fetch booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListBookings handles GET /api/v1/bookings
// Mentors see their incoming requests, mentees their own, admins everything.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	statuses, ok := parseStatusFilter(c)
	if !ok {
		return
	}

	var response *models.BookingsResponse
	switch session.Role {
	case models.RoleAdmin:
		response, err = h.service.ListAll(c.Request.Context(), statuses)
	case models.RoleMentor:
		response, err = h.service.ListForMentor(c.Request.Context(), session.UserID, statuses)
	default:
		response, err = h.service.ListForMentee(c.Request.Context(), session.UserID, statuses)
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch bookings", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Decide handles POST /api/v1/bookings/:id/decision
// The mentor approves or denies a pending booking.
func (h *BookingHandler) Decide(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	var req models.DecisionRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request body",
			ParseValidationErrors(bindErr), bindErr)
		return
	}

	booking, err := h.service.Decide(c.Request.Context(), session, id, req.Action)
	if err != nil {
		h.handleBookingError(c, err, "Failed to apply decision")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// BulkDecision handles POST /api/v1/bookings/bulk-decision
// The mentor approves or denies several pending bookings at once.
// Responds 200 when at least one booking succeeded, 404 when none of the
// ids matched a pending booking of the mentor.
func (h *BookingHandler) BulkDecision(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var req models.BulkDecisionRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request body",
			ParseValidationErrors(bindErr), bindErr)
		return
	}

	result, err := h.service.BulkDecision(c.Request.Context(), session, &req)
	if err != nil {
		if errors.Is(err, services.ErrNoBulkMatches) {
			respondError(c, http.StatusNotFound, "No pending bookings match the given ids", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to apply bulk decision", err)
		return
	}

	status := http.StatusOK
	if len(result.Succeeded) == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

// Cancel handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	booking, err := h.service.Cancel(c.Request.Context(), session, id)
	if err != nil {
		h.handleBookingError(c, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// SetStatus handles PUT /api/v1/admin/bookings/:id/status
// Admin override for a booking's status.
func (h *BookingHandler) SetStatus(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	var req models.UpdateBookingStatusRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request body",
			ParseValidationErrors(bindErr), bindErr)
		return
	}

	booking, err := h.service.SetStatus(c.Request.Context(), session, id, req.Status)
	if err != nil {
		h.handleBookingError(c, err, "Failed to update booking status")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// Delete handles DELETE /api/v1/bookings/:id
func (h *BookingHandler) Delete(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), session, id); err != nil {
		h.handleBookingError(c, err, "Failed to delete booking")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetCalendar handles GET /api/v1/mentors/:id/calendar
// Returns the mentor's approved sessions with their meeting links.
func (h *BookingHandler) GetCalendar(c *gin.Context) {
	session, err := middleware.GetUserSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	mentorID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || mentorID <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid mentor ID", err)
		return
	}

	entries, err := h.service.GetCalendar(c.Request.Context(), session, mentorID)
	if err != nil {
		h.handleBookingError(c, err, "Failed to fetch calendar")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

// handleBookingError maps common booking service errors to HTTP responses
func (h *BookingHandler) handleBookingError(c *gin.Context, err error, defaultMsg string) {
	switch {
	case errors.Is(err, services.ErrBookingNotFound):
		respondError(c, http.StatusNotFound, "Booking not found", err)
	case errors.Is(err, services.ErrAccessDenied):
		respondError(c, http.StatusForbidden, "Access denied", err)
	case errors.Is(err, services.ErrInvalidStatusTransition):
		respondErrorWithDetails(c, http.StatusConflict, "Invalid status transition", err.Error(), err)
	default:
		respondError(c, http.StatusInternalServerError, defaultMsg, err)
	}
}
