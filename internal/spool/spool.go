// Package spool manages directories of short-lived files: uploaded PDFs kept
// for a later draft, and generated drafts waiting to be downloaded.
package spool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.io/infrasutra/speedydraft/internal/fsutil"
)

type Spool struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger
}

// New creates dir if needed. Files older than ttl are removed by Sweep; a
// zero ttl keeps files forever.
func New(dir string, ttl time.Duration, logger *slog.Logger) (*Spool, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("spool dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{dir: dir, ttl: ttl, logger: logger}, nil
}

func (s *Spool) Dir() string {
	return s.dir
}

// Save stores data under a unique name derived from name and returns its path.
func (s *Spool) Save(name string, data []byte) (string, error) {
	unique := strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + fsutil.SanitizeFilename(name)
	return s.WriteFile(unique, data)
}

// WriteFile stores data under exactly name (reduced to a safe base name).
func (s *Spool) WriteFile(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, fsutil.SanitizeFilename(name))
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write spool file: %w", err)
	}
	return path, nil
}

// Sweep removes regular files last modified before now minus the ttl and
// returns how many were removed.
func (s *Spool) Sweep(now time.Time) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read spool dir: %w", err)
	}
	cutoff := now.Add(-s.ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove expired file", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Run sweeps every interval until ctx is done.
func (s *Spool) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := s.Sweep(now)
			if err != nil {
				s.logger.Error("sweep spool", "dir", s.dir, "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Info("swept spool", "dir", s.dir, "removed", removed)
			}
		}
	}
}
