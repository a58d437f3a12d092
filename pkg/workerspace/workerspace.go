// Package workerspace manages per-worker scratch directories for
// daemon worker hygiene reset: a root path plus a per-ID subdirectory,
// create/reset/lookup. A worker's hygiene reset chdirs back to a known
// root rather than to a git checkout.
package workerspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager tracks one scratch directory per worker ID under a root
// directory.
type Manager struct {
	root        string
	workersPath string
}

// NewManager creates the workers directory under root if missing.
func NewManager(root string) (*Manager, error) {
	workersPath := filepath.Join(root, "workers")
	if err := os.MkdirAll(workersPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workers directory: %w", err)
	}
	return &Manager{root: root, workersPath: workersPath}, nil
}

// CreateWorkspace returns a fresh, empty scratch directory for
// workerID, creating it if it doesn't already exist.
func (m *Manager) CreateWorkspace(workerID string) (string, error) {
	path := filepath.Join(m.workersPath, workerID)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	return path, nil
}

// ResetWorkspace clears a workspace's contents between sessions
// without removing the directory itself.
func (m *Manager) ResetWorkspace(workerID string) error {
	path := filepath.Join(m.workersPath, workerID)
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			_, createErr := m.CreateWorkspace(workerID)
			return createErr
		}
		return fmt.Errorf("failed to read workspace: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(path, e.Name())); err != nil {
			return fmt.Errorf("failed to clear workspace entry %s: %w", e.Name(), err)
		}
	}
	return nil
}

// RemoveWorkspace deletes a worker's scratch directory entirely, used
// when a worker dies rather than being recycled.
func (m *Manager) RemoveWorkspace(workerID string) error {
	path := filepath.Join(m.workersPath, workerID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	return nil
}

// GetWorkspacePath returns workerID's scratch directory path without
// touching the filesystem.
func (m *Manager) GetWorkspacePath(workerID string) string {
	return filepath.Join(m.workersPath, workerID)
}
