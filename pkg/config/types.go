package config

import (
	"fmt"
	"strings"

	"heic-toolkit-go/pkg/codec"
)

// FormatMode selects which targets a run produces
type FormatMode int

const (
	FormatJPEG FormatMode = iota
	FormatWebP
	FormatBoth
)

// String returns the string representation of FormatMode
func (f FormatMode) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatWebP:
		return "webp"
	case FormatBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Targets returns the enabled targets, primary first
func (f FormatMode) Targets() []codec.Target {
	switch f {
	case FormatJPEG:
		return []codec.Target{codec.TargetJPEG}
	case FormatWebP:
		return []codec.Target{codec.TargetWebP}
	case FormatBoth:
		return []codec.Target{codec.TargetJPEG, codec.TargetWebP}
	default:
		return nil
	}
}

// ParseFormatMode converts a format setting into a FormatMode
func ParseFormatMode(s string) (FormatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "both":
		return FormatBoth, nil
	default:
		return FormatJPEG, fmt.Errorf("invalid format: %q, must be one of: jpeg, webp, both", s)
	}
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (f *FormatMode) UnmarshalText(text []byte) error {
	mode, err := ParseFormatMode(string(text))
	if err != nil {
		return err
	}
	*f = mode
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface
func (f FormatMode) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// StorageConfig defines where publish uploads outputs
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	Bucket        string `mapstructure:"bucket"`
	Directory     string `mapstructure:"directory"`
	AWSRegion     string `mapstructure:"aws-region"`
	AWSProfile    string `mapstructure:"aws-profile"`
	AWSEndpoint   string `mapstructure:"aws-endpoint"`
	Remote        string `mapstructure:"remote"`
	RcloneBinary  string `mapstructure:"rclone-binary"`
	RcloneConfig  string `mapstructure:"rclone-config"`
	UploadWorkers int    `mapstructure:"upload-workers"`
}

// WatchConfig defines watch mode settings
type WatchConfig struct {
	DebounceMillis int `mapstructure:"debounce-ms"`
}

// Config represents the complete application configuration
type Config struct {
	// Global options
	DryRun  bool   `mapstructure:"dry-run"`
	Verbose bool   `mapstructure:"verbose"`
	LogFile string `mapstructure:"log-file"`

	// Conversion options
	Source       string     `mapstructure:"source"`
	FormatString string     `mapstructure:"format"`
	Format       FormatMode `mapstructure:"-"`
	Quality      int        `mapstructure:"quality"`
	Workers      int        `mapstructure:"workers"`
	Prefix       string     `mapstructure:"prefix"`
	Backend      string     `mapstructure:"backend"`
	CodecTimeout int        `mapstructure:"codec-timeout"`
	Extensions   []string   `mapstructure:"extensions"`

	// Output options
	MappingFile   string `mapstructure:"mapping-file"`
	SummaryOutput string `mapstructure:"summary-output"`

	Storage StorageConfig `mapstructure:"storage"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// ValidationError marks a configuration problem that must stop the run
// before any file is touched
type ValidationError struct {
	Problems []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(e.Problems, "\n"))
}
