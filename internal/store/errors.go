package store

import (
	"errors"
	"fmt"
)

var (
	// ErrVolumeNotFound is returned when an explicitly named volume does not exist.
	ErrVolumeNotFound = errors.New("volume not found")
	// ErrChapterNotFound is returned when an operation that must produce a value
	// names an unknown chapter.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrVersionNotFound is returned when a requested history snapshot is missing.
	ErrVersionNotFound = errors.New("version not found")
	// ErrInvalidOrder is returned when a reordering request is not a permutation
	// of the volume's current chapters.
	ErrInvalidOrder = errors.New("invalid chapter order")
)

// ParseError reports a file that exists but could not be deserialized.
// It is distinct from plain IO errors so callers can tell a corrupt file
// from an unavailable disk.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
