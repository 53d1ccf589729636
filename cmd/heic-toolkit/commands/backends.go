package commands

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"heic-toolkit-go/pkg/codec"
	"heic-toolkit-go/pkg/config"
)

// NewBackendsCommand creates the backends command
func NewBackendsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Show which codec backends are installed",
		Long: `List the external codec programs heic-toolkit can use, whether they
are installed, and which backend would be chosen for the given format.`,
		RunE: runBackends,
	}

	cmd.Flags().StringP("format", "f", "both", "Output format to check (jpeg, webp, both)")
	return cmd
}

func runBackends(cmd *cobra.Command, args []string) error {
	logger := config.LoggerFrom(cmd.Context())
	out := cmd.OutOrStdout()

	formatName, _ := cmd.Flags().GetString("format")
	mode, err := config.ParseFormatMode(formatName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tINSTALLED\tTARGETS\tPATH")
	for _, info := range codec.Available(exec.LookPath) {
		installed := "no"
		if info.Available {
			installed = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Name, installed, strings.Join(info.Targets, ","), info.Path)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	selected, err := codec.Select(codec.BackendAuto, mode.Targets(), 0, logger, exec.LookPath)
	if err != nil {
		if errors.Is(err, codec.ErrNoBackend) {
			fmt.Fprintf(out, "\nNo installed backend can produce %s output\n", mode)
		}
		return err
	}
	fmt.Fprintf(out, "\nAuto selection for %s: %s\n", mode, selected.Name())
	return nil
}
