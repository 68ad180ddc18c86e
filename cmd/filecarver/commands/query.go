package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseforge/filecarver/metadata"
)

func queryCmd() *cobra.Command {
	var (
		metadataPath string
		fileType     string
		listTypes    bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Look up carved-file records by file type",
		Long: `query builds an in-memory offset index over a carved_files.jsonl file in
one pass and either lists the file types present or prints every record for
one type, reading each matching record directly at its indexed offset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := metadata.BuildIndex(metadataPath)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			if listTypes {
				for _, t := range idx.FileTypes() {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			}

			if fileType == "" {
				return fmt.Errorf("query: --type is required unless --list-types is set")
			}

			entries := idx.Lookup(fileType)
			if len(entries) == 0 {
				return fmt.Errorf("query: no records found for file type %q", fileType)
			}

			f, err := os.Open(metadataPath)
			if err != nil {
				return fmt.Errorf("query: open %s: %w", metadataPath, err)
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			buf := make([]byte, 0, 64*1024)
			for _, e := range entries {
				if int64(cap(buf)) < e.LineLength {
					buf = make([]byte, e.LineLength)
				}
				line := buf[:e.LineLength]
				if _, err := f.ReadAt(line, e.LineOffset); err != nil && err != io.EOF {
					return fmt.Errorf("query: read record at offset %d: %w", e.LineOffset, err)
				}
				out.Write(line)
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metadataPath, "metadata", "", "Path to a carved_files.jsonl file (required)")
	cmd.Flags().StringVar(&fileType, "type", "", "File type ID to look up (e.g. png, zip)")
	cmd.Flags().BoolVar(&listTypes, "list-types", false, "List the file types present instead of looking one up")
	_ = cmd.MarkFlagRequired("metadata")

	return cmd
}
