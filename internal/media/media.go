// path: internal/media/media.go
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Library is a read-only accessor over the on-disk media root. Ingestion
// (upload, hashing, writing new files) is out of scope for the core; this
// only resolves asset storage paths that already exist on disk.
type Library struct {
	root string
}

func NewLibrary(root string) *Library {
	return &Library{root: root}
}

// Resolve turns a stored path (relative to the media root, or already
// absolute) into an absolute filesystem path.
func (l *Library) Resolve(storagePath string) string {
	if filepath.IsAbs(storagePath) {
		return storagePath
	}
	return filepath.Join(l.root, storagePath)
}

func (l *Library) Open(storagePath string) (io.ReadCloser, error) {
	path := l.Resolve(storagePath)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("media: open %s: %w", path, err)
	}
	return f, nil
}

func (l *Library) Stat(storagePath string) (os.FileInfo, error) {
	path := l.Resolve(storagePath)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("media: stat %s: %w", path, err)
	}
	return info, nil
}
