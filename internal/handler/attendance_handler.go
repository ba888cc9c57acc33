package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/tutor-api/internal/service"
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
	"github.com/tutorbase/tutor-api/pkg/response"
)

// AttendanceHandler exposes the attendance matrix and mark endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Matrix godoc
// @Summary Build the attendance matrix for a window
// @Tags Attendance
// @Produce json
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Param classIds query string false "Comma-separated class IDs"
// @Success 200 {object} response.Envelope
// @Router /attendance/matrix [get]
func (h *AttendanceHandler) Matrix(c *gin.Context) {
	req := service.MatrixRequest{
		From: c.Query("from"),
		To:   c.Query("to"),
	}
	if raw := c.Query("classIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.ClassIDs = append(req.ClassIDs, id)
			}
		}
	}
	matrix, err := h.attendance.BuildMatrix(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matrix, nil)
}

// Mark godoc
// @Summary Mark presence or absence for one cell
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/marks [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fact, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fact, nil)
}

// Unmark godoc
// @Summary Clear one attendance cell back to unrecorded
// @Tags Attendance
// @Accept json
// @Param payload body service.UnmarkRequest true "Unmark payload"
// @Success 204 "No Content"
// @Router /attendance/marks [delete]
func (h *AttendanceHandler) Unmark(c *gin.Context) {
	var req service.UnmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.Unmark(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
