package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a target image format the converter can produce.
type Format string

const (
	FormatJPG Format = "jpg"
	FormatPNG Format = "png"
)

// ParseFormat parses a target format name. "jpeg" is accepted as an alias of "jpg".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: unsupported target format %q", ErrInvalidConfig, s)
	}
}

// Extension returns the lowercase file extension for the format, without a dot.
func (f Format) Extension() string {
	return string(f)
}

// Matches reports whether a codec-detected format name (e.g. "jpeg", "png")
// denotes the same format as f.
func (f Format) Matches(detected string) bool {
	d := strings.ToLower(detected)
	if d == "jpeg" {
		d = "jpg"
	}
	return d != "" && d == string(f)
}

// JobConfig is the immutable configuration of a single conversion run.
type JobConfig struct {
	InputRoot  string `json:"input_root"`
	OutputRoot string `json:"output_root"` // empty = write alongside the source
	Format     Format `json:"format"`
	Overwrite  bool   `json:"overwrite"`
	Recursive  bool   `json:"recursive"`
	Workers    int    `json:"workers"`
}

// Validate checks the invariants a run relies on.
func (c JobConfig) Validate() error {
	if strings.TrimSpace(c.InputRoot) == "" {
		return fmt.Errorf("%w: input root is required", ErrInvalidConfig)
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// WorkItem is one discovered file slated for conversion.
type WorkItem struct {
	SourcePath string `json:"source_path"` // absolute path of the source image
	RelPath    string `json:"rel_path"`    // path relative to the input root
}

// NewWorkItem builds a WorkItem for path under root.
func NewWorkItem(root, path string) (WorkItem, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return WorkItem{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return WorkItem{}, fmt.Errorf("resolve %s: %w", root, err)
	}

	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || !IsLocalRel(rel) {
		return WorkItem{}, fmt.Errorf("%w: %s is outside %s", ErrInvalidRelativePath, abs, absRoot)
	}

	return WorkItem{SourcePath: abs, RelPath: rel}, nil
}

// IsLocalRel reports whether rel stays inside the directory it is relative to.
func IsLocalRel(rel string) bool {
	if rel == "" || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
