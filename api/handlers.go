package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/userdeck/userdeck/pkg/console"
	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/types"
)

// healthCheck provides a health check endpoint
// @Summary Health Check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
		Uptime:    time.Since(s.started).String(),
		Checks: map[string]string{
			"console": "ok",
		},
	})
}

// listRecords serves the filtered, sorted, paginated working set
func (s *Server) listRecords(c *gin.Context) {
	query := types.ListQuery{
		Search:  c.Query("search"),
		Role:    c.Query("role"),
		SortBy:  c.Query("sort_by"),
		SortDir: types.SortDirection(c.Query("sort_dir")),
	}
	query.ActiveOnly, _ = strconv.ParseBool(c.Query("active"))
	query.Page, _ = strconv.Atoi(c.Query("page"))
	query.PerPage, _ = strconv.Atoi(c.Query("per_page"))

	page, err := s.console.ListRecords(c.Request.Context(), query)
	if err != nil {
		s.handleError(c, "Failed to list records", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[console.RecordPage]{
		Code:    http.StatusOK,
		Message: "Records retrieved successfully",
		Data:    page,
	})
}

// getRecord serves a single record
func (s *Server) getRecord(c *gin.Context) {
	record, err := s.console.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, "Failed to get record", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[types.Record]{
		Code:    http.StatusOK,
		Message: "Record retrieved successfully",
		Data:    record,
	})
}

// createRecord handles record creation
func (s *Server) createRecord(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request format",
			Error:   err.Error(),
		})
		return
	}

	created, err := s.console.CreateRecord(c.Request.Context(), types.Record{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
		IsActive:  req.IsActive,
	})
	if err != nil {
		s.handleError(c, "Failed to create record", err)
		return
	}

	c.JSON(http.StatusCreated, BaseResponse[types.Record]{
		Code:    http.StatusCreated,
		Message: "Record created successfully",
		Data:    created,
	})
}

// updateRecord handles record updates
func (s *Server) updateRecord(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request format",
			Error:   err.Error(),
		})
		return
	}

	updated, err := s.console.UpdateRecord(c.Request.Context(), types.Record{
		ID:        c.Param("id"),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
		IsActive:  req.IsActive,
	})
	if err != nil {
		s.handleError(c, "Failed to update record", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[types.Record]{
		Code:    http.StatusOK,
		Message: "Record updated successfully",
		Data:    updated,
	})
}

// deleteRecord handles an immediate single-record delete
func (s *Server) deleteRecord(c *gin.Context) {
	if err := s.console.DeleteRecord(c.Request.Context(), c.Param("id")); err != nil {
		s.handleError(c, "Failed to delete record", err)
		return
	}

	c.JSON(http.StatusOK, SimpleResponse{
		Code:    http.StatusOK,
		Message: "Record deleted successfully",
	})
}

// uploadAvatar handles a multipart avatar upload
func (s *Server) uploadAvatar(c *gin.Context) {
	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Missing avatar file",
			Error:   err.Error(),
		})
		return
	}
	defer file.Close()

	url, err := s.console.UploadAvatar(c.Request.Context(), c.Param("id"), header.Filename, file)
	if err != nil {
		s.handleError(c, "Failed to upload avatar", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[map[string]string]{
		Code:    http.StatusOK,
		Message: "Avatar uploaded successfully",
		Data:    &map[string]string{"avatar_url": url},
	})
}

// bulkDelete starts a bulk deletion with an undo window
func (s *Server) bulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request format",
			Error:   err.Error(),
		})
		return
	}

	if err := s.console.BulkDelete(c.Request.Context(), req.IDs); err != nil {
		s.handleError(c, "Failed to start bulk deletion", err)
		return
	}

	c.JSON(http.StatusAccepted, SimpleResponse{
		Code:    http.StatusAccepted,
		Message: "Bulk deletion pending",
	})
}

// bulkDeleteStatus reports the coordinator state
func (s *Server) bulkDeleteStatus(c *gin.Context) {
	state, pending := s.console.BulkDeleteStatus()
	c.JSON(http.StatusOK, BaseResponse[BulkDeleteStatus]{
		Code:    http.StatusOK,
		Message: "Bulk deletion status",
		Data:    &BulkDeleteStatus{State: string(state), PendingIDs: pending},
	})
}

// bulkDeleteUndo reverses the pending bulk deletion
func (s *Server) bulkDeleteUndo(c *gin.Context) {
	if err := s.console.UndoBulkDelete(c.Request.Context()); err != nil {
		s.handleError(c, "Failed to undo bulk deletion", err)
		return
	}

	c.JSON(http.StatusOK, SimpleResponse{
		Code:    http.StatusOK,
		Message: "Bulk deletion undone",
	})
}

// bulkDeleteConfirm settles the pending bulk deletion immediately
func (s *Server) bulkDeleteConfirm(c *gin.Context) {
	if err := s.console.ConfirmBulkDelete(c.Request.Context()); err != nil {
		s.handleError(c, "Bulk deletion finished with failures", err)
		return
	}

	c.JSON(http.StatusOK, SimpleResponse{
		Code:    http.StatusOK,
		Message: "Bulk deletion committed",
	})
}

// listNotifications serves the live notifications
func (s *Server) listNotifications(c *gin.Context) {
	active := s.console.Notifications()
	c.JSON(http.StatusOK, BaseResponse[[]types.Notification]{
		Code:    http.StatusOK,
		Message: "Notifications retrieved successfully",
		Data:    &active,
	})
}

// getTheme serves the current theme preference
func (s *Server) getTheme(c *gin.Context) {
	c.JSON(http.StatusOK, BaseResponse[ThemeResponse]{
		Code:    http.StatusOK,
		Message: "Theme retrieved successfully",
		Data:    &ThemeResponse{Theme: s.console.Theme()},
	})
}

// setTheme updates the persisted theme preference
func (s *Server) setTheme(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request format",
			Error:   err.Error(),
		})
		return
	}

	if err := s.console.SetTheme(req.Theme); err != nil {
		s.handleError(c, "Failed to set theme", err)
		return
	}

	c.JSON(http.StatusOK, SimpleResponse{
		Code:    http.StatusOK,
		Message: "Theme updated successfully",
	})
}

// handleError maps structured errors to HTTP status codes
func (s *Server) handleError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError

	if udErr := errors.GetUserdeckError(err); udErr != nil {
		switch udErr.Type {
		case types.ErrorTypeValidation:
			status = http.StatusBadRequest
		case types.ErrorTypeNotFound:
			status = http.StatusNotFound
		case types.ErrorTypeUnauthorized:
			status = http.StatusUnauthorized
		case types.ErrorTypeExternal:
			status = http.StatusBadGateway
		}
	}

	s.logger.Error(message, err, map[string]interface{}{
		"path":       c.Request.URL.Path,
		"request_id": c.GetString("request_id"),
	})

	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: message,
		Error:   err.Error(),
	})
}
