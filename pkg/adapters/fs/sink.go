package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempFilePrefix marks in-progress writes. A crashed run may leave such
// files behind; they are always safe to delete.
const TempFilePrefix = "kiln-tmp-"

// Sink writes generated files under the output directory. It
// implements core.Sink. Every write is atomic, so an interrupted or
// failed run never leaves a half-written page.
type Sink struct {
	root string
}

// NewSink creates a Sink rooted at the output directory. The directory
// is created on demand.
func NewSink(root string) *Sink {
	return &Sink{root: root}
}

// WriteFile writes a root-relative file, creating parent directories
// as needed. Directory creation is idempotent and safe to race.
func (s *Sink) WriteFile(rel string, data []byte) error {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return fmt.Errorf("path escapes output root: %s", rel)
	}
	abs := filepath.Join(s.root, cleaned)

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	return writeAtomic(abs, data, 0644)
}

// writeAtomic stages data in a temp file next to the target and renames
// it into place. Staging in the same directory keeps the rename on one
// filesystem, where it is atomic; readers never observe a partial page.
func writeAtomic(target string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", target, err)
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op once the rename has happened

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage %s: %w", target, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage %s: %w", target, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage %s: %w", target, err)
	}

	if err := os.Rename(name, target); err != nil {
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return nil
}
