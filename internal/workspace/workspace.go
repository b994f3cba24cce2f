// Package workspace manages the directories registry repositories are
// cloned into, either ephemeral per-run directories or a persistent one
// the watch daemon reuses between reconciles.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/probeforge/metricgen/internal/logfields"
)

// Manager handles workspace directories.
type Manager struct {
	baseDir    string
	dir        string
	persistent bool
}

// NewManager creates a manager with ephemeral per-run directories under
// baseDir. An empty baseDir falls back to the system temp directory.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// NewPersistentManager creates a manager with a fixed directory that
// Cleanup leaves in place, so repeated runs can update clones instead
// of recreating them.
func NewPersistentManager(baseDir, subdir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdir == "" {
		subdir = "working"
	}
	return &Manager{
		baseDir:    baseDir,
		dir:        filepath.Join(baseDir, subdir),
		persistent: true,
	}
}

// Create makes the workspace directory.
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.dir, 0o750); err != nil {
			return fmt.Errorf("create persistent workspace: %w", err)
		}
		slog.Info("Using persistent workspace", logfields.Path(m.dir))
		return nil
	}

	dir, err := os.MkdirTemp(m.baseDir, "metricgen-*")
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	m.dir = dir
	slog.Info("Created workspace", logfields.Path(dir))
	return nil
}

// Path returns the workspace directory, empty before Create.
func (m *Manager) Path() string {
	return m.dir
}

// Cleanup removes an ephemeral workspace. Persistent workspaces are
// kept for the next run.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}
	if m.persistent {
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.dir))
		return nil
	}

	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("cleanup workspace: %w", err)
	}
	slog.Info("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}

// CreateSubdir creates a subdirectory within the workspace.
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.dir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	subdir := filepath.Join(m.dir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("create subdirectory: %w", err)
	}
	return subdir, nil
}
