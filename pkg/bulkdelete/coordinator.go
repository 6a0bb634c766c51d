// Package bulkdelete implements the optimistic bulk-delete-with-undo workflow.
//
// The coordinator owns a single pending deletion at a time. Starting one
// removes the selected records from the working set immediately, surfaces a
// countdown notification with an undo action, and mirrors the transaction to
// the durable session slot so a process restart lands back in the same undo
// window. When the window elapses (or a caller forces it) the deletions are
// committed against the remote store one at a time; undo restores the
// pre-deletion snapshot without touching the remote at all.
package bulkdelete

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/interfaces"
	"github.com/userdeck/userdeck/pkg/types"
)

// State represents the coordinator's position in the deletion lifecycle
type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
	StateUndone     State = "undone"
)

// UndoAction is the action name surfaced on the countdown notification
const UndoAction = "undo"

// pendingDeletion is the single live transaction slot
type pendingDeletion struct {
	records  types.RecordList // selection order, preserved for messaging
	snapshot types.RecordList // working set captured before the optimistic removal
	ids      []string
	idSet    map[string]struct{}
	expiresAt time.Time
	message   string
	handle    types.NotificationHandle

	expiryTimer *time.Timer
	tickDone    chan struct{}
}

// Coordinator serializes bulk deletions against the remote record store
type Coordinator struct {
	mu      sync.Mutex
	state   State
	pending *pendingDeletion

	store    interfaces.RecordStore
	cache    interfaces.WorkingSetCache
	notifier interfaces.Notifier
	slot     interfaces.SessionSlot
	events   interfaces.EventPublisher
	logger   interfaces.Logger
	cfg      config.BulkDeleteConfig
}

// NewCoordinator creates a bulk deletion coordinator and hooks it into the
// cache's refresh cycle so a background refetch cannot resurrect rows that
// are pending deletion.
func NewCoordinator(
	store interfaces.RecordStore,
	workingSet interfaces.WorkingSetCache,
	notifier interfaces.Notifier,
	slot interfaces.SessionSlot,
	publisher interfaces.EventPublisher,
	cfg config.BulkDeleteConfig,
	log interfaces.Logger,
) *Coordinator {
	c := &Coordinator{
		state:    StateIdle,
		store:    store,
		cache:    workingSet,
		notifier: notifier,
		slot:     slot,
		events:   publisher,
		logger:   log,
		cfg:      cfg,
	}
	workingSet.OnRefresh(c.reassertFilter)
	return c
}

// UpdateConfig replaces the timing configuration. It applies to the next
// transaction; a live countdown keeps the window it was started with.
func (c *Coordinator) UpdateConfig(cfg config.BulkDeleteConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// State returns the coordinator's current state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PendingIDs returns the record ids of the live pending deletion, if any
func (c *Coordinator) PendingIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	out := make([]string, len(c.pending.ids))
	copy(out, c.pending.ids)
	return out
}

// Start begins a bulk deletion for the given selection. An empty selection is
// a no-op. If a deletion is already pending it is force-committed first, so
// transactions never stack and no timer is silently abandoned.
func (c *Coordinator) Start(ctx context.Context, selection types.RecordList) error {
	if len(selection) == 0 {
		c.logger.Debug("Ignoring bulk delete with empty selection")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePending {
		c.logger.Info("Superseding pending bulk deletion", map[string]interface{}{
			"pending": len(c.pending.records),
		})
		c.commitLocked(ctx)
	}

	// Snapshot strictly before the optimistic removal.
	snapshot := c.cache.Read()

	ids := selection.IDs()
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	c.cache.CancelInFlight()
	c.cache.Write(func(working types.RecordList) types.RecordList {
		return working.Without(ids)
	})

	p := &pendingDeletion{
		records:   selection.Clone(),
		snapshot:  snapshot,
		ids:       ids,
		idSet:     idSet,
		expiresAt: time.Now().Add(c.cfg.UndoWindow),
		message:   removalMessage(len(selection)),
	}
	c.pending = p
	c.state = StatePending

	p.handle = c.notifier.Show(types.NotificationInfo,
		countdownText(p.message, c.secondsRemaining(p)),
		interfaces.ShowOptions{Actions: []string{UndoAction}})

	c.armTimers(p, c.cfg.UndoWindow)
	c.persistPending(p)

	c.publish(ctx, types.SettlementEvent{
		Kind:      types.EventDeletionStarted,
		RecordIDs: ids,
		Timestamp: time.Now(),
	})

	c.logger.Info("Bulk deletion pending", map[string]interface{}{
		"count":      len(ids),
		"expires_at": p.expiresAt,
	})
	return nil
}

// Undo reverses the pending deletion, restoring the working set from the
// snapshot. It never contacts the remote store and is effective only while
// the deletion is still pending.
func (c *Coordinator) Undo(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePending || c.pending == nil {
		return errors.NewNotFoundError("pending deletion")
	}

	p := c.pending
	c.teardownLocked(p)

	c.cache.CancelInFlight()
	c.cache.Restore(p.snapshot)

	c.state = StateUndone
	c.pending = nil

	c.notifier.Show(types.NotificationSuccess,
		fmt.Sprintf("%d user(s) restored", len(p.records)),
		interfaces.ShowOptions{Duration: 4 * time.Second})

	c.publish(ctx, types.SettlementEvent{
		Kind:      types.EventDeletionUndone,
		RecordIDs: p.ids,
		Timestamp: time.Now(),
	})

	c.logger.Info("Bulk deletion undone", map[string]interface{}{"count": len(p.records)})
	return nil
}

// Commit settles the pending deletion immediately. Triggering it twice is
// safe: only the first call finds a pending transaction.
func (c *Coordinator) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commitLocked(ctx)
}

// commitLocked runs the commit algorithm with the coordinator lock held,
// which serializes it against Start, Undo, and the tick callback.
func (c *Coordinator) commitLocked(ctx context.Context) error {
	if c.state != StatePending || c.pending == nil {
		return nil
	}

	p := c.pending
	c.state = StateCommitting

	// Timers, notification, and the durable mirror all go away before the
	// first network call so an interrupted commit cannot be replayed.
	c.teardownLocked(p)

	results := make([]types.DeleteResult, 0, len(p.records))
	for i, record := range p.records {
		if i > 0 && c.cfg.ThrottleDelay > 0 {
			time.Sleep(c.cfg.ThrottleDelay)
		}
		err := c.store.Delete(ctx, record.ID)
		if err != nil {
			c.logger.Warn("Record delete failed", map[string]interface{}{
				"record_id": record.ID,
				"error":     err.Error(),
			})
		}
		results = append(results, types.DeleteResult{Record: record, Err: err})
	}

	var failed types.RecordList
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Record)
		}
	}

	switch {
	case len(failed) == 0:
		c.notifier.Show(types.NotificationSuccess,
			fmt.Sprintf("%d user(s) deleted permanently", len(p.records)),
			interfaces.ShowOptions{Duration: 4 * time.Second})

	case len(failed) == len(p.records):
		// Nothing was deleted remotely, so the optimistic removal is undone.
		c.cache.CancelInFlight()
		c.cache.Restore(p.snapshot)
		c.notifier.Show(types.NotificationError,
			fmt.Sprintf("Failed to delete %d user(s)", len(failed)),
			interfaces.ShowOptions{Duration: 6 * time.Second})

	default:
		// Successes stand; the failed subset is not restored individually.
		// The trailing invalidate re-syncs the working set with the remote.
		names := make([]string, 0, len(failed))
		for _, r := range failed {
			names = append(names, r.DisplayName())
		}
		c.notifier.Show(types.NotificationWarning,
			fmt.Sprintf("%d deleted, %d failed: %s",
				len(p.records)-len(failed), len(failed), strings.Join(names, ", ")),
			interfaces.ShowOptions{Duration: 8 * time.Second})
	}

	c.state = StateCommitted
	c.pending = nil

	c.publish(ctx, types.SettlementEvent{
		Kind:      types.EventDeletionCommitted,
		RecordIDs: p.ids,
		FailedIDs: failed.IDs(),
		Timestamp: time.Now(),
	})

	// Reconverge with server truth regardless of outcome.
	go func() {
		if err := c.cache.Invalidate(context.Background()); err != nil {
			c.logger.Warn("Post-commit invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	c.logger.Info("Bulk deletion committed", map[string]interface{}{
		"deleted": len(p.records) - len(failed),
		"failed":  len(failed),
	})

	if len(failed) > 0 {
		errs := errors.NewErrorList()
		for _, res := range results {
			if res.Err != nil {
				errs.Add(errors.NewDeleteFailedError(res.Record.ID, res.Err))
			}
		}
		return errs.ToError()
	}
	return nil
}

// Rehydrate resumes a persisted pending deletion after a process restart.
// A corrupt or unreadable slot is discarded and the coordinator stays idle.
func (c *Coordinator) Rehydrate(ctx context.Context) error {
	blob, err := c.slot.Read()
	if err != nil {
		c.logger.Warn("Discarding unreadable session slot", map[string]interface{}{"error": err.Error()})
		if clearErr := c.slot.Clear(); clearErr != nil {
			c.logger.Warn("Failed to clear session slot", map[string]interface{}{"error": clearErr.Error()})
		}
		return nil
	}
	if blob == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records := recordsFromBlob(blob)
	idSet := make(map[string]struct{}, len(blob.RecordIDs))
	for _, id := range blob.RecordIDs {
		idSet[id] = struct{}{}
	}

	p := &pendingDeletion{
		records:   records,
		snapshot:  blob.SnapshotRecords.Clone(),
		ids:       blob.RecordIDs,
		idSet:     idSet,
		expiresAt: time.UnixMilli(blob.ExpiresAt),
		message:   blob.Message,
	}

	// Re-apply the optimistic filter; fall back to the persisted snapshot
	// when the cache has no live data yet.
	c.cache.CancelInFlight()
	if c.cacheLoaded() {
		c.cache.Write(func(working types.RecordList) types.RecordList {
			return working.Without(p.ids)
		})
	} else {
		c.cache.Restore(p.snapshot.Without(p.ids))
	}

	c.pending = p
	c.state = StatePending

	remaining := time.Until(p.expiresAt)
	if remaining <= 0 {
		// Window already elapsed: straight to commit, no undo affordance.
		c.logger.Info("Rehydrated deletion already expired, committing", map[string]interface{}{
			"count": len(p.ids),
		})
		return c.commitLocked(ctx)
	}

	p.handle = c.notifier.Show(types.NotificationInfo,
		countdownText(p.message, c.secondsRemaining(p)),
		interfaces.ShowOptions{Actions: []string{UndoAction}})
	c.armTimers(p, remaining)

	c.logger.Info("Rehydrated pending deletion", map[string]interface{}{
		"count":     len(p.ids),
		"remaining": remaining,
	})
	return nil
}

// Close cancels timers without settling the transaction; the durable mirror
// stays in place so the next start rehydrates it.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		c.stopTimers(c.pending)
		c.notifier.Dismiss(c.pending.handle)
		c.pending = nil
		c.state = StateIdle
	}
}

// --- internals ---

// armTimers starts the expiry timer and the countdown tick loop
func (c *Coordinator) armTimers(p *pendingDeletion, window time.Duration) {
	p.expiryTimer = time.AfterFunc(window, func() {
		if err := c.Commit(context.Background()); err != nil {
			c.logger.Warn("Expiry commit finished with failures", map[string]interface{}{"error": err.Error()})
		}
	})

	p.tickDone = make(chan struct{})
	go c.tickLoop(p, p.tickDone, c.cfg.TickInterval)
}

func (c *Coordinator) tickLoop(p *pendingDeletion, done chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.tick(p)
		}
	}
}

// tick refreshes the countdown text. Seconds remaining are recomputed from
// the absolute expiry so tab-style throttling cannot stretch the window.
func (c *Coordinator) tick(p *pendingDeletion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePending || c.pending != p {
		return
	}

	secs := c.secondsRemaining(p)
	if secs <= 0 {
		// The undo affordance is withdrawn; the expiry timer owns commit.
		c.notifier.Update(p.handle, p.message, nil)
		return
	}
	c.notifier.Update(p.handle, countdownText(p.message, secs), []string{UndoAction})
}

// teardownLocked cancels timers, dismisses the notification, and erases the
// durable mirror. It runs on every exit from Pending, error paths included.
func (c *Coordinator) teardownLocked(p *pendingDeletion) {
	c.stopTimers(p)
	c.notifier.Dismiss(p.handle)
	if err := c.slot.Clear(); err != nil {
		c.logger.Warn("Failed to clear session slot", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Coordinator) stopTimers(p *pendingDeletion) {
	if p.expiryTimer != nil {
		p.expiryTimer.Stop()
		p.expiryTimer = nil
	}
	if p.tickDone != nil {
		close(p.tickDone)
		p.tickDone = nil
	}
}

// persistPending writes the durable mirror. Failures are logged and the
// in-memory transaction proceeds; only the reload guarantee is lost.
func (c *Coordinator) persistPending(p *pendingDeletion) {
	blob := &types.PendingBlob{
		RecordIDs:       p.ids,
		SnapshotRecords: p.snapshot,
		ExpiresAt:       p.expiresAt.UnixMilli(),
		Message:         p.message,
	}
	if err := c.slot.Write(blob); err != nil {
		c.logger.Warn("Failed to persist pending deletion", map[string]interface{}{"error": err.Error()})
	}
}

// reassertFilter re-applies the optimistic removal after a background
// refresh, so a refetch during the undo window cannot resurrect rows that
// are about to be deleted.
func (c *Coordinator) reassertFilter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePending || c.pending == nil {
		return
	}

	idSet := c.pending.idSet
	c.cache.Write(func(working types.RecordList) types.RecordList {
		out := make(types.RecordList, 0, len(working))
		for _, r := range working {
			if _, ok := idSet[r.ID]; !ok {
				out = append(out, r)
			}
		}
		return out
	})
}

func (c *Coordinator) secondsRemaining(p *pendingDeletion) int {
	remaining := time.Until(p.expiresAt)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

func (c *Coordinator) cacheLoaded() bool {
	type loaded interface{ Loaded() bool }
	if l, ok := c.cache.(loaded); ok {
		return l.Loaded()
	}
	return len(c.cache.Read()) > 0
}

func (c *Coordinator) publish(ctx context.Context, event types.SettlementEvent) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn("Failed to publish settlement event", map[string]interface{}{"error": err.Error()})
	}
}

func removalMessage(count int) string {
	if count == 1 {
		return "1 user removed."
	}
	return fmt.Sprintf("%d users removed.", count)
}

func countdownText(message string, secs int) string {
	return fmt.Sprintf("%s Undo in %ds.", message, secs)
}

// recordsFromBlob rebuilds the selection from the persisted snapshot so
// failure messages still carry display names after a reload.
func recordsFromBlob(blob *types.PendingBlob) types.RecordList {
	byID := make(map[string]types.Record, len(blob.SnapshotRecords))
	for _, r := range blob.SnapshotRecords {
		byID[r.ID] = r
	}
	records := make(types.RecordList, 0, len(blob.RecordIDs))
	for _, id := range blob.RecordIDs {
		if r, ok := byID[id]; ok {
			records = append(records, r)
		} else {
			records = append(records, types.Record{ID: id})
		}
	}
	return records
}
