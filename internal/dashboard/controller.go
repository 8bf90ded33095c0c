package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/cache"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/render"
)

// Fetcher retrieves raw data trees for a set of data parameters.
type Fetcher interface {
	Fetch(ctx context.Context, params []models.DataParams) (*paldata.DataTree, error)
}

// Processor applies a process chain to a tree in place.
type Processor interface {
	Apply(tree *paldata.DataTree, chain []models.ProcessParams) error
}

// Renderer turns fetched and processed trees into display artifacts.
type Renderer interface {
	Render(raw, processed *paldata.DataTree, cfg models.ProcessingConfig, pathAliases map[string]string) render.Artifacts
	Pending() []byte
	Unavailable() []byte
}

// Controller owns one dashboard's state: the current config, the raw and
// processed trees, the rendered artifacts and the animation player. All
// mutating operations run under a single operation lock; concurrent user
// requests get ErrBusy instead of queueing.
type Controller struct {
	def     Definition
	inputs  *Inputs
	fetcher Fetcher
	proc    Processor
	rend    Renderer
	cache   *cache.Service
	player  *Player
	logbuf  *LogBuffer
	log     *logger.Logger

	opMu sync.Mutex

	stateMu   sync.RWMutex
	cfg       models.ProcessingConfig
	raw       *paldata.DataTree
	processed *paldata.DataTree
	artifacts render.Artifacts
	fetchedAt time.Time

	fetchCount atomic.Int64
}

// Snapshot is the dashboard state surface the HTTP layer serializes. Frame
// images and view HTML are served by their own endpoints and stay out of it.
type Snapshot struct {
	Dashboard  string         `json:"dashboard"`
	Title      string         `json:"title"`
	Busy       bool           `json:"busy"`
	HasData    bool           `json:"has_data"`
	FetchedAt  time.Time      `json:"fetched_at"`
	FetchCount int64          `json:"fetch_count"`
	Player     PlayerState    `json:"player"`
	Values     map[string]any `json:"values"`
}

// NewController wires a dashboard definition to its collaborators.
func NewController(def Definition, f Fetcher, p Processor, r Renderer, c *cache.Service) (*Controller, error) {
	inputs, err := def.NewInputs()
	if err != nil {
		return nil, err
	}
	return &Controller{
		def:     def,
		inputs:  inputs,
		fetcher: f,
		proc:    p,
		rend:    r,
		cache:   c,
		player:  NewPlayer(DefaultFrameInterval),
		logbuf:  NewLogBuffer(200),
		log:     logger.Component("dashboard." + def.Name),
	}, nil
}

// Inputs exposes the widget collector for the HTTP layer.
func (c *Controller) Inputs() *Inputs { return c.inputs }

// Player exposes the animation player. Player operations take the player's
// own lock and work even while a fetch or reprocess is running.
func (c *Controller) Player() *Player { return c.player }

// Log exposes the dashboard's user-facing log buffer.
func (c *Controller) Log() *LogBuffer { return c.logbuf }

// Definition returns the dashboard definition this controller serves.
func (c *Controller) Definition() Definition { return c.def }

// Pending returns the placeholder image shown while an operation runs.
func (c *Controller) Pending() []byte { return c.rend.Pending() }

// Unavailable returns the placeholder image for a missing frame.
func (c *Controller) Unavailable() []byte { return c.rend.Unavailable() }

// Busy reports whether an operation currently holds the controller.
func (c *Controller) Busy() bool {
	if c.opMu.TryLock() {
		c.opMu.Unlock()
		return false
	}
	return true
}

// FetchAndProcess builds the config from current inputs, fetches fresh data,
// runs the process chain and commits the result. Prior state and cache are
// untouched when any stage fails. Returns ErrBusy if another operation is
// already running.
func (c *Controller) FetchAndProcess(ctx context.Context) error {
	if !c.opMu.TryLock() {
		return ErrBusy
	}
	defer c.opMu.Unlock()
	return c.fetchAndProcess(ctx)
}

func (c *Controller) fetchAndProcess(ctx context.Context) error {
	cfg, err := c.def.BuildConfig(c.inputs)
	if err != nil {
		c.logbuf.Appendf(LevelError, "Configuration error: %v", err)
		return err
	}

	c.logbuf.Append(LevelInfo, "Fetching data...")
	raw, err := c.fetcher.Fetch(ctx, cfg.DataParams)
	if err != nil {
		c.logbuf.Appendf(LevelError, "Data fetch failed: %v", err)
		return err
	}
	c.fetchCount.Add(1)
	c.logbuf.Append(LevelSuccess, "Data fetched successfully")

	return c.processAndCommit(ctx, cfg, raw)
}

// StartFetchAndProcess claims the operation slot synchronously and runs the
// fetch in the background, so the HTTP layer can answer immediately while a
// concurrent caller still gets ErrBusy. Failures land in the activity log.
func (c *Controller) StartFetchAndProcess(ctx context.Context) error {
	if !c.opMu.TryLock() {
		return ErrBusy
	}
	go func() {
		defer c.opMu.Unlock()
		if err := c.fetchAndProcess(ctx); err != nil {
			c.log.Warnf("background fetch failed: %v", err)
		}
	}()
	return nil
}

// Reprocess re-runs the process chain on already fetched data using the
// current inputs. No network access happens. Returns ErrNoData when nothing
// has been fetched yet and ErrBusy when another operation is running.
func (c *Controller) Reprocess(ctx context.Context) error {
	if !c.opMu.TryLock() {
		return ErrBusy
	}
	defer c.opMu.Unlock()
	return c.reprocess(ctx)
}

func (c *Controller) reprocess(ctx context.Context) error {
	c.stateMu.RLock()
	raw := c.raw
	c.stateMu.RUnlock()
	if raw.IsEmpty() {
		return ErrNoData
	}

	cfg, err := c.def.BuildConfig(c.inputs)
	if err != nil {
		c.logbuf.Appendf(LevelError, "Configuration error: %v", err)
		return err
	}
	return c.processAndCommit(ctx, cfg, raw)
}

// processAndCommit runs the chain on a deep copy of raw, renders, and swaps
// the new state in atomically. The cache slot is written only after the
// in-memory commit succeeds.
func (c *Controller) processAndCommit(ctx context.Context, cfg models.ProcessingConfig, raw *paldata.DataTree) error {
	processed := raw.DeepCopy()
	c.logbuf.Append(LevelInfo, "Applying processes...")
	if err := c.proc.Apply(processed, cfg.ProcessParams); err != nil {
		c.logbuf.Appendf(LevelError, "Processing failed: %v", err)
		return err
	}
	c.logbuf.Append(LevelSuccess, "Processes applied successfully")

	artifacts := c.rend.Render(raw, processed, cfg, c.pathAliases())
	now := time.Now().UTC()

	c.stateMu.Lock()
	c.cfg = cfg
	c.raw = raw
	c.processed = processed
	c.artifacts = artifacts
	c.fetchedAt = now
	c.stateMu.Unlock()

	c.player.SetFrames(artifacts.FrameKeys())

	entry := &cache.Entry{
		Dashboard: c.def.Name,
		Config:    cfg,
		Raw:       raw,
		Processed: processed,
		Artifacts: artifacts,
		FetchedAt: now,
	}
	if err := c.cache.Put(ctx, entry); err != nil {
		c.log.Warnf("cache write failed: %v", err)
	}
	return nil
}

// RestoreOrInit brings the dashboard up at startup: a cached slot restores
// the previous session without any fetch; a miss triggers an initial fetch
// with default inputs.
func (c *Controller) RestoreOrInit(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if entry, ok := c.cache.Get(ctx, c.def.Name); ok {
		c.stateMu.Lock()
		c.cfg = entry.Config
		c.raw = entry.Raw
		c.processed = entry.Processed
		c.artifacts = entry.Artifacts
		c.fetchedAt = entry.FetchedAt
		c.stateMu.Unlock()

		c.player.SetFrames(entry.Artifacts.FrameKeys())
		c.logbuf.Append(LevelInfo, "Restored previous session from cache")
		c.log.Info("state restored from cache", map[string]any{"dashboard": c.def.Name})
		return nil
	}

	c.logbuf.Append(LevelInfo, "No cached session, fetching with defaults...")
	return c.fetchAndProcess(ctx)
}

// Watch consumes widget change signals until ctx is cancelled. Bursts of
// changes collapse into a single reprocess: pending signals are drained
// before the chain runs, and signals arriving mid-run queue exactly one
// further pass. Unlike user operations the watcher waits for the lock.
func (c *Controller) Watch(ctx context.Context) {
	changes := c.inputs.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
		}
		drain(changes)

		c.opMu.Lock()
		drain(changes)
		err := c.reprocess(ctx)
		c.opMu.Unlock()

		if err != nil && err != ErrNoData {
			c.log.Warnf("reprocess after input change failed: %v", err)
		}
	}
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Snapshot returns the serializable dashboard state.
func (c *Controller) Snapshot() Snapshot {
	c.stateMu.RLock()
	hasData := !c.raw.IsEmpty() || !c.processed.IsEmpty()
	fetchedAt := c.fetchedAt
	c.stateMu.RUnlock()

	return Snapshot{
		Dashboard:  c.def.Name,
		Title:      c.def.Title,
		Busy:       c.Busy(),
		HasData:    hasData,
		FetchedAt:  fetchedAt,
		FetchCount: c.fetchCount.Load(),
		Player:     c.player.Snapshot(),
		Values:     c.inputs.Values(),
	}
}

// Artifacts returns the current rendered artifacts.
func (c *Controller) Artifacts() render.Artifacts {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.artifacts
}

// Frame returns the rendered image for one frame key.
func (c *Controller) Frame(key int) ([]byte, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	img, ok := c.artifacts.Frames[key]
	return img, ok
}

// CurrentFrame returns the image for the player's current frame.
func (c *Controller) CurrentFrame() ([]byte, bool) {
	return c.Frame(c.player.Current())
}

// Data returns the current trees and config for export. Callers must treat
// the trees as read only.
func (c *Controller) Data() (raw, processed *paldata.DataTree, cfg models.ProcessingConfig) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.raw, c.processed, c.cfg
}

func (c *Controller) pathAliases() map[string]string {
	if file, ok := c.inputs.File(FileWidget); ok {
		return map[string]string{file.Path: file.Name}
	}
	return nil
}

// Close stops the animation player. The watcher goroutine is stopped by
// cancelling the context passed to Watch.
func (c *Controller) Close() {
	c.player.Close()
}
