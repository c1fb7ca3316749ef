// Package uploads keeps copies of uploaded GPX files so saved rides can be
// replayed later. Every path it reads or removes must resolve inside the
// upload directory.
package uploads

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/ride-replay/internal/monitoring"
)

var logger = monitoring.Component("Uploads")

// ErrOutsideDir is returned for paths that escape the upload directory.
var ErrOutsideDir = errors.New("path outside upload directory")

// Store writes GPX files under a single directory.
type Store struct {
	fs  FileSystem
	dir string
}

// NewStore returns a store rooted at dir. A nil fsys uses the OS.
func NewStore(dir string, fsys FileSystem) *Store {
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	return &Store{fs: fsys, dir: filepath.Clean(dir)}
}

// Dir returns the upload directory.
func (s *Store) Dir() string { return s.dir }

// Save writes data as <name>-<id>.gpx and returns its path.
func (s *Store) Save(name string, data []byte) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	file := fmt.Sprintf("%s-%s.gpx", SanitizeFilename(name), uuid.NewString()[:8])
	path := filepath.Join(s.dir, file)
	if err := s.fs.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	logger.Printf("stored %s (%d bytes)", path, len(data))
	return path, nil
}

// Read returns the contents of a stored file.
func (s *Store) Read(path string) ([]byte, error) {
	if err := Within(path, s.dir); err != nil {
		return nil, err
	}
	return s.fs.ReadFile(path)
}

// Remove deletes a stored file.
func (s *Store) Remove(path string) error {
	if err := Within(path, s.dir); err != nil {
		return err
	}
	return s.fs.Remove(path)
}

// Within reports an error wrapping ErrOutsideDir unless path resolves inside
// dir. Symlinks are resolved where the path or its parent exists on disk.
func Within(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve dir: %w", err)
	}
	absDir = resolveExisting(absDir)
	absPath = resolveExisting(absPath)

	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideDir, path)
	}
	return nil
}

// resolveExisting evaluates symlinks in the longest existing prefix of an
// absolute path and re-attaches the missing tail.
func resolveExisting(p string) string {
	tail := ""
	for cur := p; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, tail)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		tail = filepath.Join(filepath.Base(cur), tail)
		cur = parent
	}
}

// SanitizeFilename keeps ASCII letters, digits, dots, dashes and
// underscores; any other run of characters becomes one underscore. The
// result is at most 64 bytes and never empty.
func SanitizeFilename(s string) string {
	const maxLen = 64
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "ride"
	}
	return out
}
