package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"heic-toolkit-go/pkg/config"
	"heic-toolkit-go/pkg/convert"
	"heic-toolkit-go/pkg/utils"
)

// NewConvertCommand creates the convert command
func NewConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert HEIC/HEIF files to JPEG and/or WebP",
		Long: `Convert every HEIC/HEIF file below a directory to JPEG and/or WebP.
Outputs are written next to their sources. Outputs that already exist are
never overwritten, so an interrupted run can simply be started again.
A CSV mapping of every source file and its outputs is written to the
source directory.`,
		PreRunE: bindFlags,
		RunE:    runConvert,
	}

	addConversionFlags(cmd)
	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := config.LoggerFrom(ctx)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	return executeConversion(ctx, cfg, logger, cmd.OutOrStdout())
}

// executeConversion runs a single pipeline pass and reports its outcome
func executeConversion(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	c, err := selectCodec(cfg, logger)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	result, runErr := convert.NewPipeline(c, pipelineOptions(cfg), logger).Run(ctx)
	if result == nil {
		return runErr
	}

	printResult(out, result, cfg.DryRun)

	if cfg.SummaryOutput != "" && result.Statistics.Total > 0 {
		summary := convert.NewSummary(cfg.Source, cfg.DryRun, startedAt, result)
		if err := convert.WriteSummary(cfg.SummaryOutput, summary); err != nil {
			return utils.CombineErrors([]error{runErr, err})
		}
		logger.Info("Summary written", zap.String("path", cfg.SummaryOutput))
	}

	return runErr
}

func printResult(out io.Writer, result *convert.Result, dryRun bool) {
	s := result.Statistics
	if s.Total == 0 {
		fmt.Fprintln(out, "No HEIC/HEIF files found, nothing to do")
		return
	}

	header := "=== Conversion summary ==="
	if dryRun {
		header = "=== Conversion summary (dry run) ==="
	}
	fmt.Fprintln(out, header)
	fmt.Fprintf(out, "Backend:   %s\n", result.Backend)
	fmt.Fprintf(out, "Converted: %d\n", s.Converted)
	fmt.Fprintf(out, "Skipped:   %d\n", s.Skipped)
	fmt.Fprintf(out, "Errored:   %d\n", s.Errored)
	fmt.Fprintf(out, "Total:     %d\n", s.Total)
	for _, t := range result.Targets {
		fmt.Fprintf(out, "%-5s      %d files, %s written (%.0f%% of source)\n",
			t.Target, t.Files, utils.FormatBytes(t.OutputBytes), t.SizeRatio*100)
	}
	fmt.Fprintf(out, "Duration:  %s\n", utils.FormatDuration(result.Duration.Seconds()))
	if result.MappingPath != "" {
		fmt.Fprintf(out, "Mapping:   %s\n", result.MappingPath)
	}
	if result.Interrupted {
		fmt.Fprintf(out, "Interrupted: %d of %d files processed\n", len(result.Outcomes), s.Total)
	}
}
