// Package policy decides where a converted image goes and whether a
// conversion should happen at all.
package policy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Destination computes the output path for item under job.
//
// The file name is the source base name with the target extension. Without
// an output root the file lands next to its source. With an output root it
// lands directly in it, or, for recursive jobs, in the mirrored
// subdirectory of the source relative to the input root.
func Destination(item model.WorkItem, job model.JobConfig) (string, error) {
	base := filepath.Base(item.SourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "." + job.Format.Extension()

	if job.OutputRoot == "" {
		return filepath.Join(filepath.Dir(item.SourcePath), name), nil
	}
	if !job.Recursive {
		return filepath.Join(job.OutputRoot, name), nil
	}

	rel, err := relativeDir(item, job.InputRoot)
	if err != nil {
		return "", err
	}

	return filepath.Join(job.OutputRoot, rel, name), nil
}

// relativeDir returns the source directory of item relative to inputRoot.
// Items that do not live under inputRoot are rejected instead of guessed.
func relativeDir(item model.WorkItem, inputRoot string) (string, error) {
	rel := item.RelPath
	if rel == "" {
		absRoot, err := filepath.Abs(inputRoot)
		if err != nil {
			return "", fmt.Errorf("%w: %v", model.ErrInvalidRelativePath, err)
		}
		rel, err = filepath.Rel(absRoot, item.SourcePath)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", model.ErrInvalidRelativePath, item.SourcePath, err)
		}
	}

	if !model.IsLocalRel(filepath.Clean(rel)) {
		return "", fmt.Errorf("%w: %s is outside %s", model.ErrInvalidRelativePath, item.SourcePath, inputRoot)
	}

	return filepath.Dir(rel), nil
}

// Decide applies the conversion precedence:
//  1. an existing destination without overwrite is skipped;
//  2. a source already in the target format without overwrite is skipped;
//  3. everything else is converted.
func Decide(destExists bool, sourceFormat string, target model.Format, overwrite bool) model.Decision {
	if overwrite {
		return model.DecisionConvert
	}
	if destExists {
		return model.DecisionSkipExists
	}
	if target.Matches(sourceFormat) {
		return model.DecisionSkipSameFormat
	}
	return model.DecisionConvert
}
