// Package discovery finds the image files a conversion run will process.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Supported source extensions (lowercase, with leading dot).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".webp": true,
}

// Supported reports whether path has a supported image extension.
func Supported(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover collects the supported image files under root. Without recursive
// only direct children are considered. The whole set is built before
// returning so callers know the total up front; paths are sorted.
func Discover(root string, recursive bool) ([]model.WorkItem, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrNotFound, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", model.ErrNotFound, root)
	}

	var paths []string
	if recursive {
		paths, err = walk(absRoot)
	} else {
		paths, err = list(absRoot)
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)

	items := make([]model.WorkItem, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return nil, fmt.Errorf("relative path of %s: %w", p, err)
		}
		items = append(items, model.WorkItem{SourcePath: p, RelPath: rel})
	}

	return items, nil
}

// list returns the supported regular files directly inside dir.
func list(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if Supported(p) && isRegular(p, e) {
			paths = append(paths, p)
		}
	}

	return paths, nil
}

// walk returns every supported regular file in the subtree of dir.
// Unreadable subdirectories are logged and skipped.
func walk(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			zlog.Logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if Supported(path) && isRegular(path, d) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return paths, nil
}

// isRegular reports whether the entry is a regular file, following symlinks.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
