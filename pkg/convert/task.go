package convert

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"
	"heic-toolkit-go/pkg/codec"
	"heic-toolkit-go/pkg/stats"
	"heic-toolkit-go/pkg/utils"
)

// Task converts a single source file into every enabled target that does not
// exist yet. A Task holds no per-file state and may be shared by all workers.
type Task struct {
	Codec  codec.Codec
	Specs  []TargetSpec
	Prefix string
	Logger *zap.Logger
	Stats  *stats.ConversionStats // optional
}

// TaskResult is what one Task run contributes to the Aggregator
type TaskResult struct {
	Outcome        Outcome
	ConvertedDelta int
	ErroredDelta   int
}

// Run processes src. Codec failures are absorbed into the result; the source
// file is never modified.
func (t *Task) Run(ctx context.Context, src SourceFile) TaskResult {
	logger := t.logger().With(zap.String("file", src.RelPath))

	result := TaskResult{
		Outcome: Outcome{
			OriginalFilename: src.Name(),
			OriginalPath:     t.Prefix + src.RelPath,
			Paths:            make(map[codec.Target]string),
		},
	}

	var enabled, pending []TargetSpec
	satisfied := make(map[codec.Target]bool)
	for _, spec := range t.Specs {
		if !spec.Enabled {
			continue
		}
		enabled = append(enabled, spec)
		if fileExists(src.Destination(spec.Target)) {
			satisfied[spec.Target] = true
		} else {
			pending = append(pending, spec)
		}
	}

	if len(pending) == 0 {
		// Skipped rows show every output present on disk, enabled or not
		for _, target := range codec.AllTargets() {
			if fileExists(src.Destination(target)) {
				result.Outcome.Paths[target] = t.recordedPath(src, target)
			}
		}
		result.Outcome.Status = StatusSkipped
		logger.Debug("All targets exist, skipping")
		return result
	}

	var failed []codec.Target
	for _, spec := range pending {
		dst := src.Destination(spec.Target)
		start := time.Now()

		err := t.Codec.Convert(ctx, src.Path, dst, spec.Target, spec.Quality)
		switch {
		case err == nil:
			satisfied[spec.Target] = true
			result.ConvertedDelta++
			t.recordStats(src, spec.Target, dst, time.Since(start))
			logger.Debug("Converted",
				zap.String("target", spec.Target.String()),
				zap.Duration("duration", time.Since(start)))

		case errors.Is(err, codec.ErrDestinationExists):
			// Another writer produced the output while we were converting
			satisfied[spec.Target] = true
			logger.Warn("Destination appeared during conversion, keeping existing file",
				zap.String("target", spec.Target.String()),
				zap.String("destination", dst))

		default:
			failed = append(failed, spec.Target)
			result.ErroredDelta++
			logger.Error("Conversion failed",
				zap.String("target", spec.Target.String()),
				zap.String("backend", t.Codec.Name()),
				zap.String("reason", utils.ClassifyError(err)),
				zap.Error(err))
		}
	}

	for _, spec := range enabled {
		if satisfied[spec.Target] {
			result.Outcome.Paths[spec.Target] = t.recordedPath(src, spec.Target)
		}
	}

	switch {
	case len(failed) > 0:
		result.Outcome.Status = FailureStatus(failed[0])
	case result.ConvertedDelta > 0:
		result.Outcome.Status = StatusSuccess
	default:
		result.Outcome.Status = StatusSkipped
	}

	return result
}

// recordedPath is the prefixed, root-relative path written to the mapping
func (t *Task) recordedPath(src SourceFile, target codec.Target) string {
	return t.Prefix + src.RelDestination(target)
}

func (t *Task) recordStats(src SourceFile, target codec.Target, dst string, elapsed time.Duration) {
	if t.Stats == nil {
		return
	}
	// Dry runs produce no file and are not measured
	info, err := os.Stat(dst)
	if err != nil {
		return
	}
	t.Stats.RecordConversion(target.String(), src.Size, info.Size(), elapsed)
}

func (t *Task) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// faultOutcome is recorded when a task could not finish on its own
func faultOutcome(src SourceFile, prefix string) Outcome {
	return Outcome{
		OriginalFilename: src.Name(),
		OriginalPath:     prefix + src.RelPath,
		Paths:            make(map[codec.Target]string),
		Status:           StatusError,
	}
}
