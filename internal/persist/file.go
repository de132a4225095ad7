package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps each blob as <dir>/<name>.json. Writes go through a
// temp file + rename so a crash mid-save never truncates existing state.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// ResolveDir picks the preferred data directory if it is writable,
// otherwise the fallback. The original installation path is typically
// /var/lib/pawprint, which may be root-owned during development.
func ResolveDir(preferred, fallback string) string {
	if err := os.MkdirAll(preferred, 0755); err == nil {
		probe := filepath.Join(preferred, ".write_test")
		if err := os.WriteFile(probe, nil, 0644); err == nil {
			os.Remove(probe)
			return preferred
		}
	}
	return fallback
}

// Dir returns the resolved blob directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load implements Store.
func (s *FileStore) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Save implements Store.
func (s *FileStore) Save(name string, data []byte) error {
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
