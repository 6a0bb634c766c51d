// Package interfaces defines the core interfaces for userdeck components
package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/userdeck/userdeck/pkg/types"
)

// RecordStore defines the interface for the remote record store. Every
// operation is independently fallible; Delete is idempotent-safe to retry
// manually but is never retried automatically.
type RecordStore interface {
	// List retrieves all records from the remote store
	List(ctx context.Context) (types.RecordList, error)

	// Get retrieves a single record by ID
	Get(ctx context.Context, id string) (*types.Record, error)

	// Create creates a new record
	Create(ctx context.Context, record types.Record) (*types.Record, error)

	// Update updates an existing record
	Update(ctx context.Context, record types.Record) (*types.Record, error)

	// Delete deletes a record by ID
	Delete(ctx context.Context, id string) error

	// UploadAvatar uploads an avatar image for a record and returns its URL
	UploadAvatar(ctx context.Context, id, filename string, content io.Reader) (string, error)
}

// WorkingSetCache defines the interface for the client-visible working set.
// It is read by the rendering layer and written by the coordinator and the
// background refresh path.
type WorkingSetCache interface {
	// Read returns the current working set
	Read() types.RecordList

	// Write applies an optimistic transform to the working set
	Write(transform func(types.RecordList) types.RecordList)

	// Restore replaces the working set with a prior snapshot
	Restore(snapshot types.RecordList)

	// Invalidate forces a fresh read from the remote store
	Invalidate(ctx context.Context) error

	// CancelInFlight aborts any in-flight refresh so a stale fetch cannot
	// clobber an optimistic write
	CancelInFlight()

	// OnRefresh registers a hook invoked after every background refresh
	OnRefresh(hook func())
}

// ShowOptions carries the optional parameters of a notification
type ShowOptions struct {
	Actions  []string
	Duration time.Duration
	Handle   types.NotificationHandle
}

// Notifier defines the interface for the transient notification surface
type Notifier interface {
	// Show displays a notification and returns its handle
	Show(kind types.NotificationKind, message string, opts ShowOptions) types.NotificationHandle

	// Update replaces the message and actions of a live notification
	Update(handle types.NotificationHandle, message string, actions []string)

	// Dismiss removes a live notification
	Dismiss(handle types.NotificationHandle)

	// Active returns the currently live notifications
	Active() []types.Notification
}

// SessionSlot defines the interface for the durable single-blob store that
// lets a pending deletion survive a process restart. It is cleared only by
// its caller, never by the slot itself.
type SessionSlot interface {
	// Write persists the blob, replacing any prior content
	Write(blob *types.PendingBlob) error

	// Read returns the persisted blob, or nil if the slot is empty
	Read() (*types.PendingBlob, error)

	// Clear erases the slot
	Clear() error

	// Close releases the backing store
	Close() error
}

// EventPublisher defines the interface for settlement lifecycle events
type EventPublisher interface {
	// Publish emits an event to all consumers
	Publish(ctx context.Context, event types.SettlementEvent) error

	// Close releases the publisher
	Close() error
}

// Logger defines the interface for logging implementations
type Logger interface {
	// Debug logs debug level messages
	Debug(msg string, fields ...map[string]interface{})

	// Info logs info level messages
	Info(msg string, fields ...map[string]interface{})

	// Warn logs warning level messages
	Warn(msg string, fields ...map[string]interface{})

	// Error logs error level messages
	Error(msg string, err error, fields ...map[string]interface{})

	// Fatal logs fatal level messages and exits
	Fatal(msg string, err error, fields ...map[string]interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger
}
