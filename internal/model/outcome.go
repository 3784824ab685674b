package model

import (
	"errors"
	"fmt"
)

// Decision is the policy's choice for one item.
type Decision int

const (
	DecisionConvert Decision = iota
	DecisionSkipExists
	DecisionSkipSameFormat
)

func (d Decision) String() string {
	switch d {
	case DecisionConvert:
		return "convert"
	case DecisionSkipExists:
		return "skip-exists"
	case DecisionSkipSameFormat:
		return "skip-same-format"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// OutcomeKind tags the variant of an Outcome.
type OutcomeKind int

const (
	OutcomeConverted OutcomeKind = iota
	OutcomeSkippedExists
	OutcomeSkippedSameFormat
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeConverted:
		return "converted"
	case OutcomeSkippedExists:
		return "skipped_exists"
	case OutcomeSkippedSameFormat:
		return "skipped_same_format"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the realized result of processing one WorkItem.
//
// Converted sets Source and Dest, SkippedExists sets Dest, SkippedSameFormat
// sets Source and Failed sets Source and Err.
type Outcome struct {
	Kind   OutcomeKind
	Source string
	Dest   string
	Format string // detected source format, if known
	Err    error
}

// Converted builds a Converted outcome.
func Converted(src, dst string) Outcome {
	return Outcome{Kind: OutcomeConverted, Source: src, Dest: dst}
}

// SkippedExists builds a SkippedExists outcome.
func SkippedExists(src, dst string) Outcome {
	return Outcome{Kind: OutcomeSkippedExists, Source: src, Dest: dst}
}

// SkippedSameFormat builds a SkippedSameFormat outcome.
func SkippedSameFormat(src, format string) Outcome {
	return Outcome{Kind: OutcomeSkippedSameFormat, Source: src, Format: format}
}

// Failed builds a Failed outcome.
func Failed(src string, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Source: src, Err: err}
}

// Skipped reports whether the outcome counts towards the skipped counter.
func (o Outcome) Skipped() bool {
	return o.Kind == OutcomeSkippedExists || o.Kind == OutcomeSkippedSameFormat
}

// ErrorKind returns the taxonomy name of a Failed outcome's error.
func (o Outcome) ErrorKind() string {
	if o.Err == nil {
		return ""
	}
	return ErrorKind(o.Err)
}

// Line renders the outcome as a single log line.
func (o Outcome) Line() string {
	switch o.Kind {
	case OutcomeConverted:
		return fmt.Sprintf("Converted: %s -> %s", o.Source, o.Dest)
	case OutcomeSkippedExists:
		return fmt.Sprintf("Skipped (exists): %s", o.Dest)
	case OutcomeSkippedSameFormat:
		return fmt.Sprintf("Skipped (already %s): %s", o.Format, o.Source)
	case OutcomeFailed:
		if errors.Is(o.Err, ErrUnreadableImage) {
			return fmt.Sprintf("Error (not an image or unreadable): %s", o.Source)
		}
		return fmt.Sprintf("Error converting %s: %v", o.Source, o.Err)
	default:
		return o.Kind.String() + ": " + o.Source
	}
}
