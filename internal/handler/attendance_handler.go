package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendance-api/internal/dto"
	appErrors "github.com/attendly/attendance-api/pkg/errors"
	"github.com/attendly/attendance-api/pkg/response"
)

type attendanceService interface {
	Submit(ctx context.Context, username string, req dto.SubmitAttendanceRequest) (*dto.SubmitAttendanceResponse, error)
	History(ctx context.Context, username string) ([]dto.AttendanceHistoryEntry, error)
	Export(ctx context.Context, username, format string) ([]byte, string, error)
}

// AttendanceHandler exposes the /attendance endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Submit records today's (or any day's) attendance status for the caller.
func (h *AttendanceHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), claims.PreferredUsername, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, resp)
}

// History returns the caller's attendance records, newest date first.
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.service.History(c.Request.Context(), claims.PreferredUsername)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries)
}

// Export streams the caller's history as a CSV or PDF attachment.
func (h *AttendanceHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.service.Export(c.Request.Context(), claims.PreferredUsername, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=attendance-%s.%s", claims.PreferredUsername, format))
	c.Data(http.StatusOK, contentType, data)
}
