package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"heic-toolkit-go/internal/workers"
	"heic-toolkit-go/pkg/codec"
	"heic-toolkit-go/pkg/stats"
)

// Options configures a pipeline run
type Options struct {
	Root        string
	Extensions  []string
	Targets     []codec.Target
	Quality     int
	Workers     int
	Prefix      string
	MappingFile string // Relative names are placed under Root
	DryRun      bool
}

// Result describes a finished run
type Result struct {
	Statistics  Statistics
	Outcomes    []Outcome
	MappingPath string // Empty when no mapping was written
	Backend     string
	Duration    time.Duration
	Targets     []stats.TargetSummary
	Pool        workers.PoolStats
	Interrupted bool
}

// Pipeline runs discovery, conversion and mapping output for one root
type Pipeline struct {
	codec   codec.Codec
	options Options
	logger  *zap.Logger
}

// NewPipeline creates a pipeline using the given codec
func NewPipeline(c codec.Codec, options Options, logger *zap.Logger) *Pipeline {
	if options.DryRun {
		c = codec.NoopCodec{}
	}
	return &Pipeline{
		codec:   c,
		options: options,
		logger:  logger,
	}
}

// job carries one file through the worker pool
type job struct {
	file   SourceFile
	result TaskResult
}

// Run executes the pipeline. Discovery failures are returned before any work
// starts. Cancelling ctx stops new files from being scheduled; files already
// handed to a worker finish, the mapping is written for them and Run returns
// the partial result together with an error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	files, err := Discover(p.options.Root, p.options.Extensions)
	if err != nil {
		return nil, err
	}

	result := &Result{Backend: p.codec.Name()}
	if len(files) == 0 {
		p.logger.Info("No source files found, nothing to do",
			zap.String("root", p.options.Root),
			zap.Strings("extensions", p.options.Extensions))
		return result, nil
	}

	p.logger.Info("Starting conversion",
		zap.String("root", p.options.Root),
		zap.Int("files", len(files)),
		zap.String("backend", p.codec.Name()),
		zap.Int("workers", p.options.Workers),
		zap.Int("quality", p.options.Quality),
		zap.Bool("dry_run", p.options.DryRun))

	aggregator := NewAggregator()
	aggregator.SetTotal(len(files))
	conversionStats := stats.NewConversionStats()

	task := &Task{
		Codec:  p.codec,
		Specs:  TargetSpecs(p.options.Targets, p.options.Quality),
		Prefix: p.options.Prefix,
		Logger: p.logger,
		Stats:  conversionStats,
	}

	onResult := func(t *workers.Task, r workers.TaskResult) {
		j := t.Payload.(*job)
		if r.Error != nil {
			p.logger.Error("Conversion task fault",
				zap.String("file", j.file.RelPath),
				zap.Bool("panicked", r.Panicked),
				zap.Error(r.Error))
			aggregator.Record(faultOutcome(j.file, p.options.Prefix), 0, 1)
			return
		}
		aggregator.Record(j.result.Outcome, j.result.ConvertedDelta, j.result.ErroredDelta)
	}

	pool := workers.NewWorkerPool(workers.PoolConfig{
		Workers:   p.options.Workers,
		QueueSize: p.options.Workers,
	}, p.logger, onResult)

	// Codec calls already handed out run to completion
	if err := pool.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}

	var submitErr error
	for _, file := range files {
		j := &job{file: file}
		err := pool.Submit(ctx, &workers.Task{
			ID:      file.RelPath,
			Payload: j,
			ProcessFunc: func(taskCtx context.Context, payload interface{}) error {
				pj := payload.(*job)
				pj.result = task.Run(taskCtx, pj.file)
				return nil
			},
		})
		if err != nil {
			submitErr = err
			break
		}
	}

	pool.Wait()

	statistics, outcomes := aggregator.Snapshot()
	result.Statistics = statistics
	result.Outcomes = outcomes
	result.Targets = conversionStats.Summaries()
	result.Pool = pool.Statistics()
	result.Interrupted = submitErr != nil

	if !p.options.DryRun {
		result.MappingPath = p.mappingPath()
		if err := WriteMapping(result.MappingPath, outcomes); err != nil {
			return result, err
		}
		p.logger.Info("Mapping written",
			zap.String("path", result.MappingPath),
			zap.Int("rows", len(outcomes)))
	}

	result.Duration = time.Since(startTime)
	p.logSummary(result)

	if submitErr != nil {
		return result, fmt.Errorf("conversion stopped after %d of %d files: %w",
			len(outcomes), len(files), submitErr)
	}
	return result, nil
}

func (p *Pipeline) mappingPath() string {
	name := p.options.MappingFile
	if name == "" {
		name = "conversion_mapping.csv"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.options.Root, name)
}

func (p *Pipeline) logSummary(result *Result) {
	s := result.Statistics
	fields := []zap.Field{
		zap.Int("converted", s.Converted),
		zap.Int("skipped", s.Skipped),
		zap.Int("errored", s.Errored),
		zap.Int("total", s.Total),
		zap.Int("processed", len(result.Outcomes)),
		zap.Duration("duration", result.Duration),
	}
	for _, t := range result.Targets {
		fields = append(fields, zap.Any(t.Target, t))
	}

	if result.Interrupted {
		p.logger.Warn("Conversion interrupted", fields...)
		return
	}
	p.logger.Info("Conversion complete", fields...)
}
