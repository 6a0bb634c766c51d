// Package notify provides the transient notification surface for the console
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/userdeck/userdeck/pkg/interfaces"
	"github.com/userdeck/userdeck/pkg/types"
)

// entry pairs a live notification with its auto-dismiss timer
type entry struct {
	notification types.Notification
	timer        *time.Timer
}

// Center is an in-memory notification center. The rendering layer polls
// Active; producers hold handles to update or dismiss their notifications.
type Center struct {
	mu     sync.Mutex
	items  map[types.NotificationHandle]*entry
	logger interfaces.Logger
}

// NewCenter creates a new notification center
func NewCenter(log interfaces.Logger) *Center {
	return &Center{
		items:  make(map[types.NotificationHandle]*entry),
		logger: log,
	}
}

// Show displays a notification and returns its handle. A non-zero Duration
// auto-dismisses the notification when it elapses; a zero Duration keeps it
// until dismissed explicitly. Reusing a handle replaces the prior
// notification in place.
func (c *Center) Show(kind types.NotificationKind, message string, opts interfaces.ShowOptions) types.NotificationHandle {
	handle := opts.Handle
	if handle == "" {
		handle = types.NotificationHandle(uuid.New().String())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prior, ok := c.items[handle]; ok && prior.timer != nil {
		prior.timer.Stop()
	}

	now := time.Now()
	n := types.Notification{
		Handle:    handle,
		Kind:      kind,
		Message:   message,
		Actions:   opts.Actions,
		CreatedAt: now,
	}

	e := &entry{notification: n}
	if opts.Duration > 0 {
		e.notification.ExpiresAt = now.Add(opts.Duration)
		e.timer = time.AfterFunc(opts.Duration, func() {
			c.Dismiss(handle)
		})
	}
	c.items[handle] = e

	c.logger.Debug("Notification shown", map[string]interface{}{
		"handle": string(handle),
		"kind":   string(kind),
	})
	return handle
}

// Update replaces the message and actions of a live notification. Updating a
// dismissed notification is a no-op.
func (c *Center) Update(handle types.NotificationHandle, message string, actions []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[handle]
	if !ok {
		return
	}
	e.notification.Message = message
	e.notification.Actions = actions
}

// Dismiss removes a live notification
func (c *Center) Dismiss(handle types.NotificationHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[handle]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.items, handle)
}

// Active returns the currently live notifications, oldest first
func (c *Center) Active() []types.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.Notification, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, e.notification)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
