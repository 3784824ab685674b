package model

import "errors"

var (
	ErrNotFound            = errors.New("input root not found")
	ErrUnreadableImage     = errors.New("unreadable image")
	ErrWriteError          = errors.New("write error")
	ErrDirectoryCreate     = errors.New("directory create error")
	ErrInvalidRelativePath = errors.New("invalid relative path")
	ErrMirrorFailed        = errors.New("mirror upload failed")
	ErrInvalidConfig       = errors.New("invalid job config")
)

var taxonomy = []struct {
	err  error
	name string
}{
	{ErrNotFound, "NotFoundError"},
	{ErrUnreadableImage, "UnreadableImage"},
	{ErrWriteError, "WriteError"},
	{ErrDirectoryCreate, "DirectoryCreateError"},
	{ErrInvalidRelativePath, "InvalidRelativePath"},
	{ErrMirrorFailed, "MirrorError"},
	{ErrInvalidConfig, "InvalidConfig"},
}

// ErrorKind maps err onto its taxonomy name, or "Unknown".
func ErrorKind(err error) string {
	for _, t := range taxonomy {
		if errors.Is(err, t.err) {
			return t.name
		}
	}
	return "Unknown"
}
