// Package cache persists the single most recent dashboard result so a
// restarted service paints instantly instead of refetching. Each dashboard
// owns one slot, held in memory and written through to the storage backend
// as gzipped JSON.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/render"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/storage"
)

// entryVersion is bumped when the payload layout changes; older payloads
// then read as misses and the dashboard refetches.
const entryVersion = 1

// Entry is everything needed to restore a dashboard without refetching.
type Entry struct {
	Dashboard string                  `json:"dashboard"`
	Config    models.ProcessingConfig `json:"config"`
	Raw       *paldata.DataTree       `json:"raw"`
	Processed *paldata.DataTree       `json:"processed"`
	Artifacts render.Artifacts        `json:"artifacts"`
	FetchedAt time.Time               `json:"fetched_at"`
	Version   int                     `json:"version"`
}

// Service is the injected cache collaborator shared by all dashboard
// controllers. Reads prefer the in-memory slot; the storage backend is only
// consulted on a cold start.
type Service struct {
	store storage.Client
	log   *logger.Logger

	mu    sync.RWMutex
	slots map[string]*Entry
}

// NewService wires the cache over a storage backend. The backend's lifetime
// is owned by the caller.
func NewService(store storage.Client) *Service {
	return &Service{
		store: store,
		log:   logger.Component("cache"),
		slots: make(map[string]*Entry),
	}
}

func slotKey(dashboard string) string {
	return "dashboards/" + dashboard + "/state.json.gz"
}

// Get returns the cached entry for a dashboard. Missing, corrupt or
// version-mismatched payloads are misses, never errors.
func (s *Service) Get(ctx context.Context, dashboard string) (*Entry, bool) {
	s.mu.RLock()
	entry, ok := s.slots[dashboard]
	s.mu.RUnlock()
	if ok {
		return entry, true
	}

	data, err := s.store.Get(ctx, slotKey(dashboard))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warnf("cache read for %s failed: %v", dashboard, err)
		}
		return nil, false
	}

	entry, err = decodeEntry(data)
	if err != nil {
		s.log.Warnf("discarding cache entry for %s: %v", dashboard, err)
		return nil, false
	}
	if entry.Dashboard != dashboard {
		s.log.Warnf("discarding cache entry for %s: payload belongs to %s", dashboard, entry.Dashboard)
		return nil, false
	}

	s.mu.Lock()
	s.slots[dashboard] = entry
	s.mu.Unlock()
	return entry, true
}

// Put stores an entry in the memory slot and writes it through to the
// backend. The memory slot is updated even when the backend write fails, so
// the running process keeps its state; the error is returned for logging.
func (s *Service) Put(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Dashboard == "" {
		return fmt.Errorf("cache entry must name its dashboard")
	}
	entry.Version = entryVersion
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.slots[entry.Dashboard] = entry
	s.mu.Unlock()

	data, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry for %s: %w", entry.Dashboard, err)
	}
	if err := s.store.Store(ctx, slotKey(entry.Dashboard), data); err != nil {
		return fmt.Errorf("failed to persist cache entry for %s: %w", entry.Dashboard, err)
	}
	return nil
}

// Clear drops the dashboard's slot from memory and the backend.
func (s *Service) Clear(ctx context.Context, dashboard string) error {
	s.mu.Lock()
	delete(s.slots, dashboard)
	s.mu.Unlock()

	if err := s.store.Delete(ctx, slotKey(dashboard)); err != nil {
		return fmt.Errorf("failed to clear cache entry for %s: %w", dashboard, err)
	}
	return nil
}

func encodeEntry(entry *Entry) ([]byte, error) {
	raw, err := sonic.Marshal(entry)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (*Entry, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a gzip payload: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip payload truncated: %w", err)
	}

	var entry Entry
	if err := sonic.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("payload is not a cache entry: %w", err)
	}
	if entry.Version != entryVersion {
		return nil, fmt.Errorf("payload version %d, want %d", entry.Version, entryVersion)
	}
	paldata.Normalize(entry.Raw)
	paldata.Normalize(entry.Processed)
	return &entry, nil
}
