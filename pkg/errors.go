package lsdups

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by a scan
type ErrorKind string

const (
	KindConfig    ErrorKind = "config"    // fatal, raised before any traversal
	KindTraversal ErrorKind = "traversal" // entry skipped during the walk
	KindDigest    ErrorKind = "digest"    // candidate dropped during resolution
	KindInternal  ErrorKind = "internal"
)

// ErrFileChanged reports a file whose size no longer matches the size recorded by the walk
var ErrFileChanged = errors.New("file changed since it was sized")

// ScanError carries the failing path and its kind alongside the cause
type ScanError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newConfigError(path string, format string, args ...interface{}) error {
	return &ScanError{Kind: KindConfig, Path: path, Err: fmt.Errorf(format, args...)}
}

// IsConfigError reports whether err aborted a scan before traversal
func IsConfigError(err error) bool {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind == KindConfig
	}
	return false
}

// IsCanceled reports whether err is the outcome of a cancelled scan
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
