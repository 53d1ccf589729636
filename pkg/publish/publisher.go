// Package publish uploads the outputs listed in a conversion mapping to a
// storage backend.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"heic-toolkit-go/pkg/convert"
	"heic-toolkit-go/pkg/storage"
)

// Item is one file to publish
type Item struct {
	LocalPath string
	Key       string
}

// Plan lists the outputs recorded in rows. Keys are the recorded paths;
// local files are found by removing prefix and resolving against root. The
// mapping file itself is appended when mappingPath is set.
func Plan(root, prefix string, rows []convert.MappingRow, mappingPath string) []Item {
	seen := make(map[string]bool)
	var items []Item

	for _, row := range rows {
		for _, key := range row.OutputPaths() {
			if seen[key] {
				continue
			}
			seen[key] = true

			rel := key
			if prefix != "" {
				rel = strings.TrimPrefix(key, prefix)
			}
			items = append(items, Item{
				LocalPath: filepath.Join(root, filepath.FromSlash(strings.TrimLeft(rel, "/"))),
				Key:       key,
			})
		}
	}

	if mappingPath != "" {
		key := filepath.Base(mappingPath)
		if !seen[key] {
			items = append(items, Item{LocalPath: mappingPath, Key: key})
		}
	}
	return items
}

// Options configures a Publisher
type Options struct {
	Workers int
	Force   bool // Upload even when an object of the same size exists
	DryRun  bool
}

// Report counts what happened to the planned items
type Report struct {
	Planned  int `json:"planned" yaml:"planned"`
	Uploaded int `json:"uploaded" yaml:"uploaded"`
	Skipped  int `json:"skipped" yaml:"skipped"`
	Missing  int `json:"missing" yaml:"missing"`
	Failed   int `json:"failed" yaml:"failed"`
}

// Publisher uploads items with bounded concurrency
type Publisher struct {
	store   storage.Storage
	options Options
	logger  *zap.Logger
}

// NewPublisher creates a publisher writing to store
func NewPublisher(store storage.Storage, options Options, logger *zap.Logger) *Publisher {
	if options.Workers <= 0 {
		options.Workers = 1
	}
	return &Publisher{
		store:   store,
		options: options,
		logger:  logger,
	}
}

// Publish uploads every item. A failed upload does not stop the others; the
// returned error reports how many failed.
func (p *Publisher) Publish(ctx context.Context, items []Item) (Report, error) {
	var uploaded, skipped, missing, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.options.Workers)

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			switch p.publishOne(gctx, item) {
			case resultUploaded:
				atomic.AddInt64(&uploaded, 1)
			case resultSkipped:
				atomic.AddInt64(&skipped, 1)
			case resultMissing:
				atomic.AddInt64(&missing, 1)
			case resultFailed:
				atomic.AddInt64(&failed, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Planned:  len(items),
		Uploaded: int(uploaded),
		Skipped:  int(skipped),
		Missing:  int(missing),
		Failed:   int(failed),
	}

	p.logger.Info("Publish complete",
		zap.Int("planned", report.Planned),
		zap.Int("uploaded", report.Uploaded),
		zap.Int("skipped", report.Skipped),
		zap.Int("missing", report.Missing),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", p.options.DryRun))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("publish interrupted: %w", err)
	}
	if report.Failed > 0 {
		return report, fmt.Errorf("%d of %d uploads failed", report.Failed, report.Planned)
	}
	return report, nil
}

type itemResult int

const (
	resultUploaded itemResult = iota
	resultSkipped
	resultMissing
	resultFailed
)

func (p *Publisher) publishOne(ctx context.Context, item Item) itemResult {
	logger := p.logger.With(zap.String("key", item.Key))

	info, err := os.Stat(item.LocalPath)
	if err != nil {
		logger.Warn("Local file missing, not publishing", zap.String("local", item.LocalPath), zap.Error(err))
		return resultMissing
	}

	if !p.options.Force {
		obj, err := p.store.GetObjectMetadata(ctx, item.Key)
		switch {
		case err == nil && obj.Size == info.Size():
			logger.Debug("Object already published")
			return resultSkipped
		case err != nil && !errors.Is(err, storage.ErrObjectNotFound):
			logger.Warn("Could not check existing object, uploading", zap.Error(err))
		}
	}

	if p.options.DryRun {
		logger.Info("Would upload", zap.String("local", item.LocalPath), zap.Int64("size", info.Size()))
		return resultUploaded
	}

	if err := p.store.UploadObject(ctx, item.LocalPath, item.Key); err != nil {
		logger.Error("Upload failed", zap.Error(err))
		return resultFailed
	}
	logger.Debug("Uploaded", zap.Int64("size", info.Size()))
	return resultUploaded
}
