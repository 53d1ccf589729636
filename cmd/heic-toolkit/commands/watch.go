package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"heic-toolkit-go/pkg/config"
	"heic-toolkit-go/pkg/convert"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert new HEIC/HEIF files as they appear",
		Long: `Run a conversion pass, then watch the source directory tree and run
another pass whenever new HEIC/HEIF files appear. Passes only convert
files whose outputs are missing.`,
		PreRunE: bindFlags,
		RunE:    runWatch,
	}

	addConversionFlags(cmd)
	cmd.Flags().Int("debounce-ms", config.DefaultDebounceMillis, "Quiet period in milliseconds before a pass starts")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := config.LoggerFrom(ctx)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pass := func(ctx context.Context) error {
		return executeConversion(ctx, cfg, logger, out)
	}

	if err := pass(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		logger.Error("Initial conversion pass failed", zap.Error(err))
	}

	debounce := time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond
	watcher := convert.NewWatcher(cfg.Source, cfg.Extensions, debounce, pass, logger)
	return watcher.Watch(ctx)
}
