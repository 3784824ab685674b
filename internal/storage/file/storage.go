package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aliskhannn/image-converter/internal/model"
)

const (
	defaultDirPerm  os.FileMode = 0o755
	defaultFilePerm os.FileMode = 0o644
)

// Storage is the local filesystem backend converted images are written to.
// It is safe for concurrent use; it keeps no mutable state.
type Storage struct {
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// NewStorage creates a new Storage with default permissions.
func NewStorage() *Storage {
	return &Storage{dirPerm: defaultDirPerm, filePerm: defaultFilePerm}
}

// EnsureDir creates dir and its parents. An existing directory, including
// one created concurrently by another worker, is not an error.
func (s *Storage) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		// MkdirAll may lose a race with a sibling creating the same path.
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}
		return fmt.Errorf("%w: %s: %v", model.ErrDirectoryCreate, dir, err)
	}
	return nil
}

// Exists reports whether path exists.
func (s *Storage) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// Save writes src to dstPath, replacing any existing file. The data goes to
// a temporary file in the same directory which is renamed over dstPath only
// after a complete write, so a failure leaves neither a partial file nor a
// damaged previous output.
func (s *Storage) Save(ctx context.Context, dstPath string, src io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), "."+filepath.Base(dstPath)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", model.ErrWriteError, dstPath, err)
	}
	tmpPath := tmp.Name()

	_, writeErr := io.Copy(tmp, src)
	if writeErr == nil {
		writeErr = tmp.Chmod(s.filePerm)
	}
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Rename(tmpPath, dstPath)
	}
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: write %s: %v", model.ErrWriteError, dstPath, writeErr)
	}

	return dstPath, nil
}

// Load opens the file at path for reading.
func (s *Storage) Load(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(path)
}
