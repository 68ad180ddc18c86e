package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	carver "github.com/caseforge/filecarver"
	"github.com/caseforge/filecarver/config"
	"github.com/caseforge/filecarver/internal/logger"
)

func resumeCmd() *cobra.Command {
	var (
		configPath     string
		checkpointPath string
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a previously checkpointed scan",
		Long: `resume continues a scan from its last saved checkpoint, re-using the
original run's identifier and skipping every chunk already scanned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if checkpointPath == "" {
				checkpointPath = cfg.Checkpoint.Path
			}
			if checkpointPath == "" {
				return fmt.Errorf("resume: no checkpoint path given, and run config has none configured")
			}

			run, err := carver.ResumeFromConfig(cfg, checkpointPath)
			if err != nil {
				return fmt.Errorf("resume: %w", err)
			}

			logger.Log.Info("resume: continuing run from {path}", checkpointPath)
			summary, err := run.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("resume: scan failed: %w", err)
			}

			logger.Log.Info("resume: complete, {bytes} bytes scanned, {hits} hits, {files} files carved",
				summary.BytesScanned, summary.HitsFound, summary.FilesCarved)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML run configuration (required)")
	cmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "Checkpoint path; defaults to the run config's checkpoint.path")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
