package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
)

// UploadStore stages uploaded product files on disk. Files get random names
// so concurrent uploads never collide and user-supplied filenames never
// reach the filesystem.
type UploadStore struct {
	dir string
	log *logger.Logger
}

// NewUploadStore creates the staging directory if needed.
func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadStore{dir: dir, log: logger.Component("uploads")}, nil
}

// Save streams one uploaded file to disk, keeping the original extension,
// and returns the staged path.
func (u *UploadStore) Save(src io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(u.dir, uuid.New().String()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// Sweep deletes staged files older than maxAge and reports how many were
// removed.
func (u *UploadStore) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		u.log.Warnf("sweep failed to read %s: %v", u.dir, err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(u.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed
}
