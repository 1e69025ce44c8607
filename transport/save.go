package transport

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSaver writes downloads into a directory.
type FileSaver struct {
	Dir string
}

// Save writes data as name inside Dir. Only the base name is used. The MIME
// type is not needed on a file system.
func (s *FileSaver) Save(name, mime string, data []byte) error {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return fmt.Errorf("invalid file name %q", name)
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(dir, base)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
