package api

import "github.com/userdeck/userdeck/pkg/types"

// BaseResponse represents the base structure for all API responses
type BaseResponse[T any] struct {
	Code    int    `json:"code" example:"200"`
	Message string `json:"message" example:"Operation successful"`
	Data    *T     `json:"data,omitempty"`
}

// SimpleResponse for operations without data return
type SimpleResponse = BaseResponse[interface{}]

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Invalid request format"`
	Error   string `json:"error,omitempty"`
}

// LoginRequest carries the operator credential
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"operator"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // epoch seconds
}

// RecordRequest represents a create/update record payload
type RecordRequest struct {
	FirstName string `json:"first_name" binding:"required" example:"Ada"`
	LastName  string `json:"last_name" binding:"required" example:"Lovelace"`
	Email     string `json:"email" binding:"required,email" example:"ada@example.com"`
	Role      string `json:"role,omitempty" example:"admin"`
	IsActive  bool   `json:"is_active"`
}

// BulkDeleteRequest represents a bulk deletion selection, in order
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// BulkDeleteStatus reports the coordinator state to the rendering surface
type BulkDeleteStatus struct {
	State      string   `json:"state"`
	PendingIDs []string `json:"pending_ids,omitempty"`
}

// ThemeRequest represents a theme preference update
type ThemeRequest struct {
	Theme types.Theme `json:"theme" binding:"required,oneof=light dark"`
}

// ThemeResponse carries the current theme preference
type ThemeResponse struct {
	Theme types.Theme `json:"theme"`
}

// HealthResponse represents the health check payload
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}
