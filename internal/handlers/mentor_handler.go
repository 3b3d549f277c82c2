package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Miompolly/capstone/internal/services"
)

// MentorHandler handles the public mentor directory endpoints
type MentorHandler struct {
	service services.MentorServiceInterface
}

// NewMentorHandler creates a new MentorHandler
func NewMentorHandler(service services.MentorServiceInterface) *MentorHandler {
	return &MentorHandler{
		service: service,
	}
}

// ListMentors handles GET /api/v1/mentors
func (h *MentorHandler) ListMentors(c *gin.Context) {
	response, err := h.service.ListMentors(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch mentors", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetMentor handles GET /api/v1/mentors/:id
func (h *MentorHandler) GetMentor(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid mentor ID", err)
		return
	}

	mentor, err := h.service.GetMentor(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrMentorNotFound) {
			respondError(c, http.StatusNotFound, "Mentor not found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch mentor", err)
		return
	}

	c.JSON(http.StatusOK, mentor)
}
