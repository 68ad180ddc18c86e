package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	carver "github.com/caseforge/filecarver"
	"github.com/caseforge/filecarver/config"
	"github.com/caseforge/filecarver/internal/logger"
	"github.com/caseforge/filecarver/monitoring"
)

func scanCmd() *cobra.Command {
	var (
		configPath  string
		runID       string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan an evidence source and carve recognized files",
		Long: `scan reads a YAML run configuration describing the evidence source,
chunking parameters, output directory, and optional metadata/custody/entropy
settings, then runs the carving pipeline to completion.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if runID == "" {
				runID = fmt.Sprintf("run-%d", time.Now().UnixNano())
			}

			run, err := carver.NewFromConfig(cfg, runID)
			if err != nil {
				return fmt.Errorf("initialize run: %w", err)
			}

			if metricsAddr != "" {
				srv := monitoring.NewServer(nil)
				go func() {
					if err := srv.ListenAndServe(metricsAddr); err != nil && err != http.ErrServerClosed {
						logger.Log.Warn("scan: metrics server stopped: {error}", err)
					}
				}()
				logger.Log.Info("scan: serving /metrics and /healthz on {addr}", metricsAddr)
			}

			logger.Log.Info("scan: starting run {runID} against {evidence}", runID, cfg.Evidence.Path)
			summary, err := run.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			logger.Log.Info("scan: complete, {bytes} bytes scanned, {hits} hits, {files} files carved",
				summary.BytesScanned, summary.HitsFound, summary.FilesCarved)
			if summary.CustodyDigest != "" {
				logger.Log.Info("scan: custody chain digest {digest}", summary.CustodyDigest)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML run configuration (required)")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier; generated from the current time if omitted")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "If set, serve /metrics and /healthz on this address for the duration of the scan")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
