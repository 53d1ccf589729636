package codec

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Backend names accepted by the backend setting
const (
	BackendAuto        = "auto"
	BackendMagick      = "magick"
	BackendConvert     = "convert"
	BackendHeifConvert = "heif-convert"
	BackendFFmpeg      = "ffmpeg"
)

// LookPathFunc resolves an executable name, normally exec.LookPath
type LookPathFunc func(file string) (string, error)

// backendSpec is the static description of one external codec
type backendSpec struct {
	name    string
	binary  string
	targets []Target
	args    argsFunc
}

// defaultOrder is the probing order for the auto backend
var defaultOrder = []string{BackendMagick, BackendConvert, BackendHeifConvert, BackendFFmpeg}

var backendSpecs = map[string]backendSpec{
	BackendMagick: {
		name:    BackendMagick,
		binary:  "magick",
		targets: []Target{TargetJPEG, TargetWebP},
		args:    imageMagickArgs,
	},
	BackendConvert: {
		name:    BackendConvert,
		binary:  "convert",
		targets: []Target{TargetJPEG, TargetWebP},
		args:    imageMagickArgs,
	},
	BackendHeifConvert: {
		name:    BackendHeifConvert,
		binary:  "heif-convert",
		targets: []Target{TargetJPEG},
		args:    heifConvertArgs,
	},
	BackendFFmpeg: {
		name:    BackendFFmpeg,
		binary:  "ffmpeg",
		targets: []Target{TargetJPEG, TargetWebP},
		args:    ffmpegArgs,
	},
}

// BackendNames returns every accepted backend setting, auto first
func BackendNames() []string {
	return append([]string{BackendAuto}, defaultOrder...)
}

// imageMagickArgs flattens JPEG output onto white and keeps EXIF, which
// ImageMagick carries over unless told to strip it.
func imageMagickArgs(src, dst string, t Target, quality int) []string {
	args := []string{src}
	switch t {
	case TargetJPEG:
		args = append(args,
			"-background", "white",
			"-alpha", "remove",
			"-alpha", "off",
			"-colorspace", "sRGB",
			"-quality", strconv.Itoa(quality))
	case TargetWebP:
		args = append(args,
			"-quality", strconv.Itoa(quality),
			"-define", "webp:method=6")
	}
	return append(args, dst)
}

func heifConvertArgs(src, dst string, _ Target, quality int) []string {
	return []string{"-q", strconv.Itoa(quality), src, dst}
}

// ffmpegArgs maps quality 1-100 onto the JPEG qscale range 31-2. The JPEG
// filter chain paints a white canvas under the image before dropping alpha.
func ffmpegArgs(src, dst string, t Target, quality int) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", src, "-map_metadata", "0", "-frames:v", "1"}
	switch t {
	case TargetJPEG:
		args = append(args,
			"-filter_complex", "[0:v]split[bg][fg];[bg]drawbox=c=white:t=fill[canvas];[canvas][fg]overlay=format=auto,format=yuvj444p",
			"-q:v", strconv.Itoa(JPEGQScale(quality)))
	case TargetWebP:
		args = append(args,
			"-c:v", "libwebp",
			"-quality", strconv.Itoa(quality),
			"-compression_level", "6")
	}
	return append(args, dst)
}

// JPEGQScale converts a 1-100 quality into ffmpeg's 2-31 qscale (lower is better)
func JPEGQScale(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return 2 + (100-quality)*29/99
}

// BackendInfo reports the availability of one backend
type BackendInfo struct {
	Name      string   `json:"name" yaml:"name"`
	Binary    string   `json:"binary" yaml:"binary"`
	Path      string   `json:"path,omitempty" yaml:"path,omitempty"`
	Available bool     `json:"available" yaml:"available"`
	Targets   []string `json:"targets" yaml:"targets"`
}

// Available probes every known backend in default order
func Available(lookPath LookPathFunc) []BackendInfo {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	infos := make([]BackendInfo, 0, len(defaultOrder))
	for _, name := range defaultOrder {
		spec := backendSpecs[name]
		info := BackendInfo{Name: spec.name, Binary: spec.binary}
		for _, t := range spec.targets {
			info.Targets = append(info.Targets, t.String())
		}
		if path, err := lookPath(spec.binary); err == nil {
			info.Path = path
			info.Available = true
		}
		infos = append(infos, info)
	}
	return infos
}

// Select resolves the backend for a run once, up front. With "auto" the first
// installed backend that supports every requested target wins.
func Select(preference string, targets []Target, timeout time.Duration, logger *zap.Logger, lookPath LookPathFunc) (*CommandCodec, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	preference = strings.ToLower(strings.TrimSpace(preference))
	candidates := defaultOrder
	if preference != "" && preference != BackendAuto {
		if _, ok := backendSpecs[preference]; !ok {
			return nil, fmt.Errorf("unknown codec backend %q (valid: %s)", preference, strings.Join(BackendNames(), ", "))
		}
		candidates = []string{preference}
	}

	var reasons []string
	for _, name := range candidates {
		spec := backendSpecs[name]

		if missing := missingTargets(spec, targets); len(missing) > 0 {
			reasons = append(reasons, fmt.Sprintf("%s: cannot produce %s", name, strings.Join(missing, ", ")))
			continue
		}

		path, err := lookPath(spec.binary)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %s not found in PATH", name, spec.binary))
			continue
		}

		supported := make(map[Target]bool, len(spec.targets))
		for _, t := range spec.targets {
			supported[t] = true
		}

		logger.Info("Selected codec backend",
			zap.String("backend", spec.name),
			zap.String("binary", path),
			zap.Duration("timeout", timeout))

		return &CommandCodec{
			name:    spec.name,
			binary:  path,
			targets: supported,
			args:    spec.args,
			timeout: timeout,
			logger:  logger.With(zap.String("backend", spec.name)),
		}, nil
	}

	return nil, fmt.Errorf("%w (%s)", ErrNoBackend, strings.Join(reasons, "; "))
}

func missingTargets(spec backendSpec, targets []Target) []string {
	var missing []string
	for _, want := range targets {
		found := false
		for _, have := range spec.targets {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want.String())
		}
	}
	return missing
}

// NoopCodec reports success without touching the filesystem. It backs dry runs.
type NoopCodec struct{}

// Name returns the backend name
func (NoopCodec) Name() string { return "dry-run" }

// Supports accepts every target
func (NoopCodec) Supports(Target) bool { return true }

// Convert does nothing
func (NoopCodec) Convert(context.Context, string, string, Target, int) error { return nil }
