package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"heic-toolkit-go/pkg/config"
	"heic-toolkit-go/pkg/convert"
	"heic-toolkit-go/pkg/utils"
)

// previewRows is how many changed rows are printed outside dry-run mode
const previewRows = 5

// NewFixPathsCommand creates the fix-paths command
func NewFixPathsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix-paths",
		Short: "Add the path prefix to every path in a mapping file",
		Long: `Rewrite a conversion mapping so that every original, JPEG and WebP path
starts with the configured prefix. Paths that already carry it are left
alone. A timestamped backup of the file is written before it is replaced.`,
		PreRunE: bindFlags,
		RunE:    runFixPaths,
	}

	cmd.Flags().String("csv", "", "Mapping file to rewrite (required)")
	cmd.Flags().String("prefix", config.DefaultPrefix, "Prefix every path must start with")
	cmd.MarkFlagRequired("csv")

	return cmd
}

func runFixPaths(cmd *cobra.Command, args []string) error {
	logger := config.LoggerFrom(cmd.Context())
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := utils.ValidateNonEmpty(cfg.Prefix, "prefix"); err != nil {
		return err
	}

	csvPath, _ := cmd.Flags().GetString("csv")
	rows, err := convert.ReadMapping(csvPath)
	if err != nil {
		return err
	}

	fixed, changed := convert.RewritePrefix(rows, cfg.Prefix)

	fmt.Fprintf(out, "Mapping file: %s\n", csvPath)
	fmt.Fprintf(out, "Dry run: %t\n\n", cfg.DryRun)

	shown := 0
	for i := range rows {
		if rows[i] == fixed[i] {
			continue
		}
		if cfg.DryRun || shown < previewRows {
			fmt.Fprintf(out, "row %d: %s\n", i+1, rows[i].OriginalFilename)
			fmt.Fprintf(out, "  old: %s -> jpeg: %s\n", rows[i].OriginalPath, rows[i].JPEGPath)
			fmt.Fprintf(out, "  new: %s -> jpeg: %s\n\n", fixed[i].OriginalPath, fixed[i].JPEGPath)
			shown++
		}
	}

	fmt.Fprintf(out, "Rows: %d\n", len(rows))
	fmt.Fprintf(out, "Rows to fix: %d\n", changed)

	if cfg.DryRun {
		fmt.Fprintln(out, "Dry run, no changes written")
		return nil
	}
	if changed == 0 {
		logger.Info("Mapping already uses the prefix, nothing to do", zap.String("path", csvPath))
		return nil
	}

	backup, err := convert.BackupFile(csvPath, time.Now().Format("20060102150405"))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Backup written: %s\n", backup)

	if err := convert.WriteMappingRows(csvPath, fixed); err != nil {
		return err
	}

	logger.Info("Mapping paths fixed",
		zap.String("path", csvPath),
		zap.Int("rows", len(rows)),
		zap.Int("changed", changed))
	fmt.Fprintf(out, "Mapping updated: %s\n", csvPath)
	return nil
}
