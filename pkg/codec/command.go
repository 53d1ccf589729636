package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxStderr bounds how much command output is kept in a ConversionError
const maxStderr = 512

// argsFunc builds the command line for one conversion
type argsFunc func(src, dst string, t Target, quality int) []string

// CommandCodec runs an external binary for every conversion
type CommandCodec struct {
	name    string
	binary  string
	targets map[Target]bool
	args    argsFunc
	timeout time.Duration
	logger  *zap.Logger
}

// Name returns the backend name
func (c *CommandCodec) Name() string {
	return c.name
}

// Binary returns the resolved executable path
func (c *CommandCodec) Binary() string {
	return c.binary
}

// Supports reports whether the backend can produce the target
func (c *CommandCodec) Supports(t Target) bool {
	return c.targets[t]
}

// Convert encodes src into dst. The command writes to a hidden temporary file
// next to dst which is only moved into place once the command succeeded.
func (c *CommandCodec) Convert(ctx context.Context, src, dst string, t Target, quality int) error {
	if !c.Supports(t) {
		return &ConversionError{Backend: c.name, Target: t, Source: src, Err: ErrUnsupportedTarget}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	tmp, err := tempSibling(dst)
	if err != nil {
		return &ConversionError{Backend: c.name, Target: t, Source: src, Err: err}
	}
	defer os.Remove(tmp)

	cmd := exec.CommandContext(ctx, c.binary, c.args(src, tmp, t, quality)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Debug("Running codec command",
		zap.String("backend", c.name),
		zap.String("command", strings.Join(cmd.Args, " ")))

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return &ConversionError{
			Backend: c.name,
			Target:  t,
			Source:  src,
			Stderr:  tail(stderr.String(), maxStderr),
			Err:     err,
		}
	}

	info, err := os.Stat(tmp)
	if err != nil {
		return &ConversionError{Backend: c.name, Target: t, Source: src, Err: err}
	}
	if info.Size() == 0 {
		return &ConversionError{Backend: c.name, Target: t, Source: src, Err: errors.New("codec produced an empty file")}
	}

	if err := commit(tmp, dst); err != nil {
		return &ConversionError{Backend: c.name, Target: t, Source: src, Err: err}
	}

	c.logger.Debug("Codec command completed",
		zap.String("backend", c.name),
		zap.String("output", dst),
		zap.Int64("size_bytes", info.Size()),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// tempSibling reserves a hidden file in dst's directory that keeps dst's
// extension, since the backends pick the encoder from the output name.
func tempSibling(dst string) (string, error) {
	dir := filepath.Dir(dst)
	ext := filepath.Ext(dst)
	stem := strings.TrimSuffix(filepath.Base(dst), ext)

	f, err := os.CreateTemp(dir, "."+stem+".*.tmp"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary output: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// commit publishes tmp as dst without ever replacing an existing dst.
// Hard links give that guarantee atomically; filesystems without link support
// fall back to a rename after a final existence check.
func commit(tmp, dst string) error {
	err := os.Link(tmp, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	if _, statErr := os.Lstat(dst); statErr == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
