package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"heic-toolkit-go/pkg/config"
	"heic-toolkit-go/pkg/convert"
	"heic-toolkit-go/pkg/publish"
	"heic-toolkit-go/pkg/storage"
)

// NewPublishCommand creates the publish command
func NewPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload converted outputs to a directory or S3-compatible storage",
		Long: `Read the conversion mapping of a source directory and upload every
JPEG/WebP output it lists, plus the mapping itself. Object keys are the
paths recorded in the mapping. Objects that already exist with the same
size are not uploaded again.`,
		PreRunE: bindFlags,
		RunE:    runPublish,
	}

	cmd.Flags().StringP("source", "s", "", "Directory that was converted (required)")
	cmd.Flags().String("prefix", config.DefaultPrefix, "Path prefix recorded in the mapping file")
	cmd.Flags().String("mapping-file", config.DefaultMappingFile, "Mapping file name, relative to the source directory")
	cmd.Flags().String("storage-backend", "local", "Storage backend (local, aws, rclone)")
	cmd.Flags().String("bucket", "", "Bucket name, or base directory for local storage (required)")
	cmd.Flags().String("directory", "", "Key prefix inside the bucket")
	cmd.Flags().String("aws-region", "", "AWS region")
	cmd.Flags().String("aws-profile", "", "AWS shared config profile")
	cmd.Flags().String("aws-endpoint", "", "Custom S3 endpoint (R2, MinIO)")
	cmd.Flags().String("remote", "", "Rclone remote name")
	cmd.Flags().String("rclone-binary", "rclone", "Path to the rclone binary")
	cmd.Flags().String("rclone-config", "", "Rclone config file")
	cmd.Flags().Int("upload-workers", config.DefaultUploadWorkers, "Number of concurrent uploads")
	cmd.Flags().Bool("force", false, "Upload even when an object of the same size exists")
	cmd.Flags().Bool("skip-mapping", false, "Do not upload the mapping file")

	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("bucket")

	return cmd
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := config.LoggerFrom(ctx)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateStorageConfig(cfg); err != nil {
		return err
	}

	mappingPath := cfg.MappingFile
	if !filepath.IsAbs(mappingPath) {
		mappingPath = filepath.Join(cfg.Source, mappingPath)
	}

	rows, err := convert.ReadMapping(mappingPath)
	if err != nil {
		return err
	}

	skipMapping, _ := cmd.Flags().GetBool("skip-mapping")
	planMapping := mappingPath
	if skipMapping {
		planMapping = ""
	}
	items := publish.Plan(cfg.Source, cfg.Prefix, rows, planMapping)

	store, err := storage.NewStorage(&storage.StorageConfig{
		Backend:     storage.StorageBackend(cfg.Storage.Backend),
		Bucket:      cfg.Storage.Bucket,
		Directory:   cfg.Storage.Directory,
		AWSRegion:   cfg.Storage.AWSRegion,
		AWSProfile:  cfg.Storage.AWSProfile,
		AWSEndpoint: cfg.Storage.AWSEndpoint,

		Remote:       cfg.Storage.Remote,
		RcloneBinary: cfg.Storage.RcloneBinary,
		RcloneConfig: cfg.Storage.RcloneConfig,
	}, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	force, _ := cmd.Flags().GetBool("force")

	logger.Info("Publishing converted outputs",
		zap.String("mapping", mappingPath),
		zap.Int("items", len(items)),
		zap.String("backend", cfg.Storage.Backend),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.Int("workers", cfg.Storage.UploadWorkers))

	publisher := publish.NewPublisher(store, publish.Options{
		Workers: cfg.Storage.UploadWorkers,
		Force:   force,
		DryRun:  cfg.DryRun,
	}, logger)

	report, err := publisher.Publish(ctx, items)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Planned:  %d\n", report.Planned)
	fmt.Fprintf(out, "Uploaded: %d\n", report.Uploaded)
	fmt.Fprintf(out, "Skipped:  %d\n", report.Skipped)
	fmt.Fprintf(out, "Missing:  %d\n", report.Missing)
	fmt.Fprintf(out, "Failed:   %d\n", report.Failed)

	return err
}
