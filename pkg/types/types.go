// Package types defines the core types shared across userdeck components
package types

import (
	"fmt"
	"strings"
	"time"
)

// Record represents a single user record as served by the remote record store.
type Record struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name" validate:"required"`
	LastName  string    `json:"last_name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Role      string    `json:"role,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DisplayName returns the human-readable name used in notifications.
func (r Record) DisplayName() string {
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if name == "" {
		return r.Email
	}
	return name
}

// RecordList represents an ordered collection of records
type RecordList []Record

// IDs returns the record ids in list order.
func (l RecordList) IDs() []string {
	ids := make([]string, 0, len(l))
	for _, r := range l {
		ids = append(ids, r.ID)
	}
	return ids
}

// Clone returns a deep copy of the list so callers cannot mutate shared state.
func (l RecordList) Clone() RecordList {
	if l == nil {
		return nil
	}
	out := make(RecordList, len(l))
	copy(out, l)
	return out
}

// Without returns a copy of the list excluding the given ids.
func (l RecordList) Without(ids []string) RecordList {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make(RecordList, 0, len(l))
	for _, r := range l {
		if _, ok := drop[r.ID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// SortDirection represents the direction of a sort
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// ListQuery represents the search/filter/sort/pagination parameters
// applied to the working set when listing records.
type ListQuery struct {
	Search     string        `json:"search,omitempty"`
	Role       string        `json:"role,omitempty"`
	ActiveOnly bool          `json:"active_only,omitempty"`
	SortBy     string        `json:"sort_by,omitempty" validate:"omitempty,oneof=first_name last_name email role created_at"`
	SortDir    SortDirection `json:"sort_dir,omitempty" validate:"omitempty,oneof=asc desc"`
	Page       int           `json:"page,omitempty" validate:"omitempty,min=1"`
	PerPage    int           `json:"per_page,omitempty" validate:"omitempty,min=1,max=100"`
}

// NotificationKind represents the visual category of a notification
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// NotificationHandle is an opaque reference to a live notification.
type NotificationHandle string

// Notification represents a transient user-facing message.
type Notification struct {
	Handle    NotificationHandle `json:"handle"`
	Kind      NotificationKind   `json:"kind"`
	Message   string             `json:"message"`
	Actions   []string           `json:"actions,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at,omitempty"`
}

// PendingBlob is the durable mirror of a pending bulk deletion. It carries no
// live timer or notification handles, only what rehydration needs.
type PendingBlob struct {
	RecordIDs       []string   `json:"recordIds"`
	SnapshotRecords RecordList `json:"snapshotRecords"`
	ExpiresAt       int64      `json:"expiresAt"` // epoch milliseconds
	Message         string     `json:"message"`
}

// Remaining returns the time left until the blob's expiry, measured against
// the supplied wall-clock instant.
func (b PendingBlob) Remaining(now time.Time) time.Duration {
	return time.UnixMilli(b.ExpiresAt).Sub(now)
}

// Validate performs a structural sanity check on a rehydrated blob. A blob
// failing this check is treated as corrupt and discarded.
func (b PendingBlob) Validate() error {
	if len(b.RecordIDs) == 0 {
		return fmt.Errorf("pending blob has no record ids")
	}
	if b.ExpiresAt <= 0 {
		return fmt.Errorf("pending blob has no expiry")
	}
	if b.Message == "" {
		return fmt.Errorf("pending blob has no message")
	}
	return nil
}

// SettlementOutcome describes how a pending deletion settled.
type SettlementOutcome string

const (
	SettlementCommitted SettlementOutcome = "committed"
	SettlementUndone    SettlementOutcome = "undone"
)

// DeleteResult captures the outcome of one remote delete attempt.
type DeleteResult struct {
	Record Record `json:"record"`
	Err    error  `json:"-"`
}

// SettlementEventKind labels a bulk-deletion lifecycle transition
type SettlementEventKind string

const (
	EventDeletionStarted   SettlementEventKind = "deletion_started"
	EventDeletionUndone    SettlementEventKind = "deletion_undone"
	EventDeletionCommitted SettlementEventKind = "deletion_committed"
)

// SettlementEvent describes a bulk-deletion lifecycle transition, published
// for external audit consumers.
type SettlementEvent struct {
	Kind      SettlementEventKind `json:"kind"`
	RecordIDs []string            `json:"record_ids"`
	FailedIDs []string            `json:"failed_ids,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Theme represents the console color scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// IsValid checks if the theme is a known value.
func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark
}

// ErrorType represents the broad category of an error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
)
