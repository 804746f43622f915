// Package workspace manages the user-editable workspace directory: layer
// overrides, workspace skills, and runtime data.
package workspace

import (
	"os"
	"path/filepath"
)

// Workspace represents the workspace directory structure. It provides path
// helpers and ensures the required subdirectories exist.
type Workspace struct {
	Root string
}

// New creates a new Workspace rooted at the given directory.
func New(root string) *Workspace {
	return &Workspace{Root: root}
}

// EnsureStructure creates the workspace directory tree if it does not exist.
// Idempotent, safe to call multiple times.
func (w *Workspace) EnsureStructure() error {
	dirs := []string{
		w.Root,
		w.LayersDir(),
		w.SkillsDir(),
		w.DataDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// LayersDir returns the directory holding layer override files.
func (w *Workspace) LayersDir() string {
	return filepath.Join(w.Root, "layers")
}

// SkillsDir returns the directory scanned for workspace skills.
func (w *Workspace) SkillsDir() string {
	return filepath.Join(w.Root, "skills")
}

// DataDir returns the directory for runtime data such as the history
// database.
func (w *Workspace) DataDir() string {
	return filepath.Join(w.Root, "data")
}
