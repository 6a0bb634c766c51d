// Package cache provides the client-visible working set of records
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/userdeck/userdeck/pkg/interfaces"
	"github.com/userdeck/userdeck/pkg/types"
)

// WorkingSet caches the remote records for the rendering layer. It supports
// optimistic writes, snapshot restore, forced invalidation, and a periodic
// background refresh. The refresh hook lets the bulk deletion coordinator
// re-assert its optimistic filter after every refetch.
type WorkingSet struct {
	mu      sync.RWMutex
	records types.RecordList
	loaded  bool

	store  interfaces.RecordStore
	logger interfaces.Logger

	hooks []func()

	// fetchGen invalidates in-flight fetches: a response is installed only if
	// no optimistic write or newer fetch superseded it in the meantime.
	fetchGen       uint64
	inFlightCancel context.CancelFunc

	refreshInterval time.Duration
	refreshCancel   context.CancelFunc
	refreshRunning  bool
}

// NewWorkingSet creates a working-set cache backed by the given record store
func NewWorkingSet(store interfaces.RecordStore, refreshInterval time.Duration, log interfaces.Logger) *WorkingSet {
	return &WorkingSet{
		store:           store,
		logger:          log,
		refreshInterval: refreshInterval,
	}
}

// Read returns a copy of the current working set
func (w *WorkingSet) Read() types.RecordList {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.records.Clone()
}

// Loaded reports whether the cache has ever been populated
func (w *WorkingSet) Loaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loaded
}

// Write applies an optimistic transform to the working set. The transform
// receives a copy, so it can drop or rewrite rows without aliasing.
func (w *WorkingSet) Write(transform func(types.RecordList) types.RecordList) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = transform(w.records.Clone())
	w.loaded = true
}

// Restore replaces the working set with a prior snapshot
func (w *WorkingSet) Restore(snapshot types.RecordList) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = snapshot.Clone()
	w.loaded = true
}

// OnRefresh registers a hook invoked after every successful refetch
func (w *WorkingSet) OnRefresh(hook func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks = append(w.hooks, hook)
}

// CancelInFlight aborts any in-flight refetch so a stale response cannot
// clobber an optimistic write that follows.
func (w *WorkingSet) CancelInFlight() {
	w.mu.Lock()
	w.fetchGen++
	cancel := w.inFlightCancel
	w.inFlightCancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// beginFetch registers a new fetch and returns its generation and context
func (w *WorkingSet) beginFetch(parent context.Context) (uint64, context.Context, context.CancelFunc) {
	fetchCtx, cancel := context.WithCancel(parent)

	w.mu.Lock()
	if w.inFlightCancel != nil {
		w.inFlightCancel()
	}
	w.fetchGen++
	gen := w.fetchGen
	w.inFlightCancel = cancel
	w.mu.Unlock()

	return gen, fetchCtx, cancel
}

// Invalidate forces a fresh read from the remote store, retrying transient
// failures with exponential backoff until the context is cancelled.
func (w *WorkingSet) Invalidate(ctx context.Context) error {
	gen, fetchCtx, cancel := w.beginFetch(ctx)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second

	var fresh types.RecordList
	operation := func() error {
		records, err := w.store.List(fetchCtx)
		if err != nil {
			return err
		}
		fresh = records
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, fetchCtx)); err != nil {
		w.logger.Warn("Working set invalidation failed", map[string]interface{}{"error": err.Error()})
		return err
	}

	w.apply(gen, fresh)
	return nil
}

// StartRefresh begins the periodic background refresh loop
func (w *WorkingSet) StartRefresh(ctx context.Context) {
	w.mu.Lock()
	if w.refreshRunning || w.refreshInterval <= 0 {
		w.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.refreshCancel = cancel
	w.refreshRunning = true
	w.mu.Unlock()

	go w.refreshLoop(loopCtx)
}

// StopRefresh stops the background refresh loop
func (w *WorkingSet) StopRefresh() {
	w.mu.Lock()
	cancel := w.refreshCancel
	w.refreshCancel = nil
	w.refreshRunning = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (w *WorkingSet) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(w.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refreshOnce(ctx)
		}
	}
}

// refreshOnce performs a single background refetch. Failures are logged and
// skipped; the next tick tries again.
func (w *WorkingSet) refreshOnce(ctx context.Context) {
	gen, fetchCtx, cancel := w.beginFetch(ctx)
	defer cancel()

	records, err := w.store.List(fetchCtx)
	if err != nil {
		w.logger.Debug("Background refresh failed", map[string]interface{}{"error": err.Error()})
		return
	}

	w.apply(gen, records)
}

// apply installs a freshly fetched working set unless a cancellation or a
// newer fetch superseded it, then runs the refresh hooks.
func (w *WorkingSet) apply(gen uint64, fresh types.RecordList) {
	w.mu.Lock()
	if gen != w.fetchGen {
		w.mu.Unlock()
		return
	}
	w.inFlightCancel = nil
	w.records = fresh.Clone()
	w.loaded = true
	hooks := make([]func(), len(w.hooks))
	copy(hooks, w.hooks)
	w.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}
