// Package commands implements CLI commands for filecarver.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	rootCmd = &cobra.Command{
		Use:   "filecarver",
		Short: "Concurrent forensic file-carving engine",
		Long: `filecarver scans a raw evidence stream for known file signatures and
reconstructs candidate files through per-format carve handlers, emitting
carved files alongside structured metadata and an optional chain of
custody.`,
	}
)

// Execute runs the CLI.
func Execute(v string) error {
	version = v

	rootCmd.AddCommand(
		versionCmd(),
		scanCmd(),
		resumeCmd(),
		verifyCmd(),
		queryCmd(),
		compactCmd(),
	)

	return rootCmd.Execute()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "filecarver version %s\n", version)
		},
	}
}
