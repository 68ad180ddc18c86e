package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseforge/filecarver/internal/logger"
	"github.com/caseforge/filecarver/metadata"
)

func compactCmd() *cobra.Command {
	var (
		inputs []string
		output string
	)

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Merge resumed-run metadata exports into one deduplicated file",
		Long: `compact reads one or more carved_files.jsonl exports, the output of a
checkpointed run resumed one or more times, and writes a single file
containing each distinct (global_start, file_type) record exactly once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(inputs) == 0 {
				return fmt.Errorf("compact: at least one --input is required")
			}

			c := metadata.NewCompactor()
			written, skipped, err := c.CompactFiles(inputs, output)
			if err != nil {
				return fmt.Errorf("compact: %w", err)
			}

			logger.Log.Info("compact: wrote {written} records, skipped {skipped} duplicates, into {output}",
				written, skipped, output)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputs, "input", nil, "A carved_files.jsonl export to merge; repeat for multiple files")
	cmd.Flags().StringVar(&output, "output", "", "Path to write the compacted, deduplicated metadata file (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
