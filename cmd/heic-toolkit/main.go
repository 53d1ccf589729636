package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"heic-toolkit-go/cmd/heic-toolkit/commands"
	"heic-toolkit-go/pkg/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, finishing in-flight conversions...")
		cancel()
	}()

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "heic-toolkit",
		Short: "Batch HEIC/HEIF to JPEG and WebP converter",
		Long: `A toolkit for converting HEIC/HEIF photo libraries:
- Converting every HEIC/HEIF file under a directory to JPEG and/or WebP
- Writing a CSV mapping of original files to converted outputs
- Fixing path prefixes in existing mapping files
- Publishing converted outputs to a directory or S3-compatible storage
- Watching a directory and converting new files as they arrive`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging before running any command
			verbose, _ := cmd.Flags().GetBool("verbose")
			logFile, _ := cmd.Flags().GetString("log-file")
			logger, err := config.SetupLogging(verbose, logFile)
			if err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}

			cmd.SetContext(config.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Run in dry-run mode (no files are written)")

	// Add commands
	rootCmd.AddCommand(commands.NewConvertCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewFixPathsCommand())
	rootCmd.AddCommand(commands.NewPublishCommand())
	rootCmd.AddCommand(commands.NewBackendsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))

	// Execute
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
