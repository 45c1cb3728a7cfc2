package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meysamhadeli/astview/debounce"
	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/meysamhadeli/astview/snapshot_store"
)

// DefaultAutosaveDelay is the quiet period before the working text is written.
const DefaultAutosaveDelay = 300 * time.Millisecond

// writeTimeout bounds one background autosave write.
const writeTimeout = 10 * time.Second

// Store is the durable side of the controller.
type Store interface {
	PutCurrentText(ctx context.Context, text string) error
	GetCurrentText(ctx context.Context) (string, error)
	AppendSnapshot(ctx context.Context, text string, root *hierarchy.Node) (int64, error)
	ListSnapshots(ctx context.Context) ([]snapshot_store.SnapshotRecord, error)
	GetSnapshot(ctx context.Context, id int64) (snapshot_store.SnapshotRecord, error)
	DeleteSnapshot(ctx context.Context, id int64) error
}

// Controller keeps an in-memory copy of the snapshot log, always refreshed by a full
// reload after a mutation, and debounces writes of the working text.
type Controller struct {
	store    Store
	logger   *slog.Logger
	autosave *debounce.Debouncer[pendingText]

	// writeMu orders durable writes of the current text slot.
	writeMu     sync.Mutex
	autosaveErr error
	// generation is bumped under writeMu by Restore; autosaves scheduled earlier are dropped.
	generation atomic.Uint64

	mu        sync.RWMutex
	records   []snapshot_store.SnapshotRecord
	listeners []func([]snapshot_store.SnapshotRecord)
}

// pendingText is an autosave tagged with the generation it was scheduled in.
type pendingText struct {
	text       string
	generation uint64
}

// NewController wires a controller to store. A non-positive delay selects DefaultAutosaveDelay.
func NewController(store Store, autosaveDelay time.Duration, logger *slog.Logger) *Controller {
	if autosaveDelay <= 0 {
		autosaveDelay = DefaultAutosaveDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		store:   store,
		logger:  logger,
		records: []snapshot_store.SnapshotRecord{},
	}
	c.autosave = debounce.New(autosaveDelay, c.writeCurrent)
	return c
}

// OnChange registers fn to receive the record list after every reload.
func (c *Controller) OnChange(fn func([]snapshot_store.SnapshotRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// LoadAll replaces the in-memory list with a fresh read of the log.
func (c *Controller) LoadAll(ctx context.Context) error {
	records, err := c.store.ListSnapshots(ctx)
	if err != nil {
		c.logger.Error("failed to load snapshots", "error", err)
		return err
	}

	c.mu.Lock()
	c.records = records
	listeners := append([]func([]snapshot_store.SnapshotRecord){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(c.Records())
	}
	return nil
}

// Save appends a snapshot and reloads the log.
func (c *Controller) Save(ctx context.Context, text string, root *hierarchy.Node) (int64, error) {
	id, err := c.store.AppendSnapshot(ctx, text, root)
	if err != nil {
		c.logger.Error("failed to save snapshot", "error", err)
		return 0, err
	}
	c.logger.Debug("snapshot saved", "id", id)
	return id, c.LoadAll(ctx)
}

// Delete removes a snapshot and reloads the log.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.store.DeleteSnapshot(ctx, id); err != nil {
		c.logger.Error("failed to delete snapshot", "id", id, "error", err)
		return err
	}
	c.logger.Debug("snapshot deleted", "id", id)
	return c.LoadAll(ctx)
}

// Records returns a copy of the in-memory log.
func (c *Controller) Records() []snapshot_store.SnapshotRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]snapshot_store.SnapshotRecord{}, c.records...)
}

// Get looks a record up in the in-memory log.
func (c *Controller) Get(id int64) (snapshot_store.SnapshotRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, record := range c.records {
		if record.ID == id {
			return record, true
		}
	}
	return snapshot_store.SnapshotRecord{}, false
}

// Autosave schedules text for the current slot. Bursts collapse into one write of the last text.
func (c *Controller) Autosave(text string) {
	c.autosave.Call(pendingText{text: text, generation: c.generation.Load()})
}

// FlushAutosave writes a pending autosave now and reports whether there was one.
func (c *Controller) FlushAutosave() bool {
	return c.autosave.Flush()
}

// AutosavePending reports whether a write is waiting for its quiet period.
func (c *Controller) AutosavePending() bool {
	return c.autosave.Pending()
}

// AutosaveErr returns the error of the most recent autosave write, if it failed.
func (c *Controller) AutosaveErr() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.autosaveErr
}

// writeCurrent is the debounced write. Failures are logged and left for the next autosave.
// A write scheduled before the latest Restore is dropped, even if its timer already fired.
func (c *Controller) writeCurrent(pending pendingText) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if pending.generation != c.generation.Load() {
		c.logger.Debug("dropped autosave superseded by restore", "bytes", len(pending.text))
		return
	}
	c.autosaveErr = c.store.PutCurrentText(ctx, pending.text)
	if c.autosaveErr != nil {
		c.logger.Warn("autosave failed", "error", c.autosaveErr)
		return
	}
	c.logger.Debug("autosaved current text", "bytes", len(pending.text))
}

// CurrentText flushes any pending autosave and reads the current slot.
func (c *Controller) CurrentText(ctx context.Context) (string, error) {
	c.FlushAutosave()
	return c.store.GetCurrentText(ctx)
}

// Restore copies a snapshot's text into the current slot, dropping any pending autosave.
func (c *Controller) Restore(ctx context.Context, id int64) (snapshot_store.SnapshotRecord, error) {
	record, err := c.store.GetSnapshot(ctx, id)
	if err != nil {
		return snapshot_store.SnapshotRecord{}, err
	}

	c.autosave.Stop()
	c.writeMu.Lock()
	c.generation.Add(1)
	err = c.store.PutCurrentText(ctx, record.Key)
	c.writeMu.Unlock()
	if err != nil {
		return snapshot_store.SnapshotRecord{}, fmt.Errorf("restore snapshot %d: %w", id, err)
	}
	return record, nil
}

// Close writes any pending autosave.
func (c *Controller) Close() error {
	if c.FlushAutosave() {
		return c.AutosaveErr()
	}
	return nil
}
