// Package convert implements the batch conversion pipeline: discovering
// source images, converting each into its enabled targets, aggregating the
// per-file outcomes and writing the mapping artifact.
package convert

import (
	"errors"
	"path"
	"path/filepath"

	"heic-toolkit-go/pkg/codec"
)

var (
	// ErrDirectoryNotFound is returned when the run root does not exist
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrNotDirectory is returned when the run root is not a directory
	ErrNotDirectory = errors.New("not a directory")
)

// SourceFile is a discovered input image. It is never mutated after discovery.
type SourceFile struct {
	Path    string // Absolute path on disk
	RelPath string // Path relative to the run root, forward slashes
	Dir     string // Absolute containing directory
	Stem    string // File name without extension
	Ext     string // Extension as found on disk
	Size    int64
}

// Name returns the base file name
func (f SourceFile) Name() string {
	return filepath.Base(f.Path)
}

// Destination returns the output path for a target: same directory, same stem
func (f SourceFile) Destination(t codec.Target) string {
	return filepath.Join(f.Dir, f.Stem+t.Extension())
}

// RelDestination returns the output path relative to the run root
func (f SourceFile) RelDestination(t codec.Target) string {
	return path.Join(path.Dir(f.RelPath), f.Stem+t.Extension())
}

// TargetSpec is one output encoding configured for the run
type TargetSpec struct {
	Target  codec.Target
	Quality int
	Enabled bool
}

// TargetSpecs builds a spec for every known target, enabling the given ones
func TargetSpecs(enabled []codec.Target, quality int) []TargetSpec {
	on := make(map[codec.Target]bool, len(enabled))
	for _, t := range enabled {
		on[t] = true
	}

	specs := make([]TargetSpec, 0, len(codec.AllTargets()))
	for _, t := range codec.AllTargets() {
		specs = append(specs, TargetSpec{Target: t, Quality: quality, Enabled: on[t]})
	}
	return specs
}

// Status is the file-level result recorded in the mapping
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	// StatusError marks a fault in the task itself rather than in the codec
	StatusError Status = "error"
)

// FailureStatus returns the status reported when a target fails
func FailureStatus(t codec.Target) Status {
	return Status(t.String() + "_failed")
}

// Outcome is the single record produced for each discovered source file
type Outcome struct {
	OriginalFilename string
	OriginalPath     string
	Paths            map[codec.Target]string
	Status           Status
}

// Path returns the recorded path for a target, or "" if none
func (o Outcome) Path(t codec.Target) string {
	return o.Paths[t]
}

// Statistics holds the run counters. Converted and Errored count targets,
// Skipped and Total count files.
type Statistics struct {
	Converted int `json:"converted" yaml:"converted"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Errored   int `json:"errored" yaml:"errored"`
	Total     int `json:"total" yaml:"total"`
}
