// Package codec wraps the external image codecs used to turn HEIC/HEIF sources
// into JPEG and WebP files. One backend is selected per run; callers only see
// the Codec interface.
package codec

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Target is one of the output encodings a run can produce
type Target int

const (
	// TargetJPEG is the primary target
	TargetJPEG Target = iota
	// TargetWebP is the secondary target
	TargetWebP
)

// AllTargets returns every known target in reporting order
func AllTargets() []Target {
	return []Target{TargetJPEG, TargetWebP}
}

// String returns the tag used in config values and status strings
func (t Target) String() string {
	switch t {
	case TargetJPEG:
		return "jpeg"
	case TargetWebP:
		return "webp"
	default:
		return "unknown"
	}
}

// Extension returns the destination file extension including the dot
func (t Target) Extension() string {
	switch t {
	case TargetJPEG:
		return ".jpg"
	case TargetWebP:
		return ".webp"
	default:
		return ""
	}
}

// SupportsAlpha reports whether the encoding can carry transparency
func (t Target) SupportsAlpha() bool {
	return t == TargetWebP
}

// ParseTarget converts a tag such as "jpeg" or "webp" into a Target
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return TargetJPEG, nil
	case "webp":
		return TargetWebP, nil
	default:
		return 0, fmt.Errorf("unknown target format: %q", s)
	}
}

// Codec converts a single source file into a single target encoding.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name identifies the backend in logs and summaries
	Name() string

	// Supports reports whether the backend can produce the target
	Supports(t Target) bool

	// Convert writes dst from src. dst only exists afterwards if the call
	// returned nil.
	Convert(ctx context.Context, src, dst string, t Target, quality int) error
}

var (
	// ErrNoBackend is returned when no installed backend can serve the run
	ErrNoBackend = errors.New("no usable codec backend found")

	// ErrUnsupportedTarget is returned when a backend cannot produce a target
	ErrUnsupportedTarget = errors.New("target not supported by backend")

	// ErrDestinationExists is returned when dst appeared while converting
	ErrDestinationExists = errors.New("destination already exists")
)

// ConversionError describes a failed codec invocation
type ConversionError struct {
	Backend string
	Target  Target
	Source  string
	Stderr  string
	Err     error
}

// Error implements the error interface
func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("%s conversion of %s to %s failed: %v", e.Backend, e.Source, e.Target, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying error
func (e *ConversionError) Unwrap() error {
	return e.Err
}
