// Package files owns the on-disk artifact directories: scratch scripts,
// rendered videos and thumbnails.
package files

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"scenecast/internal/pkg/errors"
	"scenecast/internal/pkg/logger"
)

// CleanupResult is the outcome of a best-effort removal pass. Errors are
// logged where they happen and never returned to callers.
type CleanupResult struct {
	Removed []string
	Errors  []error
}

func (r *CleanupResult) fail(path string, err error) {
	r.Errors = append(r.Errors, errors.Cleanup(path, err))
}

// Dirs are the three artifact directories.
type Dirs struct {
	Output    string
	Scratch   string
	Thumbnail string
}

func (d Dirs) all() []string {
	return []string{d.Output, d.Scratch, d.Thumbnail}
}

// Manager bootstraps and prunes the artifact directories.
type Manager struct {
	dirs Dirs
	log  *logger.Logger
	now  func() time.Time
}

func NewManager(dirs Dirs, log *logger.Logger) *Manager {
	return &Manager{dirs: dirs, log: log.WithComponent("files"), now: time.Now}
}

// Dirs returns the configured directories.
func (m *Manager) Dirs() Dirs { return m.dirs }

// Bootstrap creates every artifact directory. Safe to call repeatedly.
func (m *Manager) Bootstrap() error {
	for _, dir := range m.dirs.all() {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "files.bootstrap", "could not create %s", dir)
		}
		m.log.Info("directory ready", "path", dir)
	}
	return nil
}

// ReapStale removes regular files in the scratch directory last modified
// more than maxAge ago and returns how many were removed.
func (m *Manager) ReapStale(maxAge time.Duration) int {
	var res CleanupResult
	cutoff := m.now().Add(-maxAge)

	entries, err := os.ReadDir(m.dirs.Scratch)
	if err != nil {
		if !os.IsNotExist(err) {
			res.fail(m.dirs.Scratch, err)
		}
		m.report("stale scratch files removed", res)
		return 0
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(m.dirs.Scratch, entry.Name())
		info, err := entry.Info()
		if err != nil {
			res.fail(path, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			res.fail(path, err)
			continue
		}
		res.Removed = append(res.Removed, path)
	}

	m.report("stale scratch files removed", res)
	return len(res.Removed)
}

// Purge removes every regular file whose name contains jobKey from the
// output, scratch and thumbnail directories, and returns the removed paths.
//
// Matching is by substring: purging "job-4" also removes "job-42_x.mp4".
func (m *Manager) Purge(jobKey string) []string {
	var res CleanupResult
	if jobKey == "" {
		return nil
	}

	for _, dir := range m.dirs.all() {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				res.fail(dir, err)
			}
			continue
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() || !strings.Contains(entry.Name(), jobKey) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				res.fail(path, err)
				continue
			}
			res.Removed = append(res.Removed, path)
		}
	}

	m.report("artifacts purged", res, "job_key", jobKey)
	if res.Removed == nil {
		return []string{}
	}
	return res.Removed
}

func (m *Manager) report(msg string, res CleanupResult, args ...any) {
	for _, err := range res.Errors {
		m.log.Warn("cleanup failed", "error", err.Error())
	}
	m.log.Info(msg, append(args, "count", len(res.Removed), "errors", len(res.Errors))...)
}
