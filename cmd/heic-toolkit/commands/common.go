// Package commands implements the heic-toolkit subcommands.
package commands

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"heic-toolkit-go/pkg/codec"
	"heic-toolkit-go/pkg/config"
	"heic-toolkit-go/pkg/convert"
)

// storageFlagKeys maps storage flags onto their nested config keys
var storageFlagKeys = map[string]string{
	"storage-backend": "storage.backend",
	"bucket":          "storage.bucket",
	"directory":       "storage.directory",
	"aws-region":      "storage.aws-region",
	"aws-profile":     "storage.aws-profile",
	"aws-endpoint":    "storage.aws-endpoint",
	"remote":          "storage.remote",
	"rclone-binary":   "storage.rclone-binary",
	"rclone-config":   "storage.rclone-config",
	"upload-workers":  "storage.upload-workers",
	"debounce-ms":     "watch.debounce-ms",
}

// bindFlags binds the executing command's flags to viper. It runs in PreRunE
// so commands sharing flag names do not overwrite each other's bindings.
func bindFlags(cmd *cobra.Command, args []string) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := f.Name
		if nested, ok := storageFlagKeys[f.Name]; ok {
			key = nested
		}
		if err := viper.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// loadConfig loads configuration for the executing command
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// addConversionFlags registers the flags shared by convert and watch
func addConversionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("source", "s", "", "Directory to scan for HEIC/HEIF files (required)")
	cmd.Flags().StringP("format", "f", config.DefaultFormat, "Output format (jpeg, webp, both)")
	cmd.Flags().IntP("quality", "q", config.DefaultQuality, "Output quality (1-100)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers(), "Number of concurrent conversions")
	cmd.Flags().String("prefix", config.DefaultPrefix, "Path prefix recorded in the mapping file")
	cmd.Flags().String("backend", codec.BackendAuto, "Codec backend (auto, magick, convert, heif-convert, ffmpeg)")
	cmd.Flags().Int("codec-timeout", config.DefaultCodecTimeout, "Timeout in seconds for a single conversion (0 disables)")
	cmd.Flags().StringSlice("extensions", config.DefaultExtensions, "Source file extensions")
	cmd.Flags().String("mapping-file", config.DefaultMappingFile, "Mapping file name, relative to the source directory")
	cmd.Flags().String("summary-output", "", "Write a YAML run summary to this file")

	cmd.MarkFlagRequired("source")
}

// selectCodec picks the codec backend for a run
func selectCodec(cfg *config.Config, logger *zap.Logger) (codec.Codec, error) {
	if cfg.DryRun {
		return codec.NoopCodec{}, nil
	}

	c, err := codec.Select(cfg.Backend, cfg.Format.Targets(), cfg.CodecTimeoutDuration(), logger, exec.LookPath)
	if err != nil {
		return nil, err
	}

	logger.Info("Selected codec backend",
		zap.String("backend", c.Name()),
		zap.String("binary", c.Binary()))
	return c, nil
}

// pipelineOptions translates configuration into pipeline options
func pipelineOptions(cfg *config.Config) convert.Options {
	return convert.Options{
		Root:        cfg.Source,
		Extensions:  cfg.Extensions,
		Targets:     cfg.Format.Targets(),
		Quality:     cfg.Quality,
		Workers:     cfg.Workers,
		Prefix:      cfg.Prefix,
		MappingFile: cfg.MappingFile,
		DryRun:      cfg.DryRun,
	}
}
