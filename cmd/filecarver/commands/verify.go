package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseforge/filecarver/custody"
	"github.com/caseforge/filecarver/internal/logger"
)

func verifyCmd() *cobra.Command {
	var (
		manifestPath string
		publicKeyHex string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a chain-of-custody manifest signature",
		Long: `verify checks a <run_id>.manifest.sig file's Ed25519 signature against a
supplied public key, confirming the carved-file chain digest has not been
altered since the run that produced it signed it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(manifestPath)
			if err != nil {
				return fmt.Errorf("verify: read manifest: %w", err)
			}
			var m custody.Manifest
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("verify: parse manifest: %w", err)
			}

			key := publicKeyHex
			if key == "" {
				key = m.PublicKey
			}
			if key == "" {
				return fmt.Errorf("verify: no public key given, and manifest carries none")
			}

			ok, err := custody.VerifyManifest(m, key)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			if !ok {
				logger.Log.Error("verify: signature INVALID for run {runID}", m.RunID)
				return fmt.Errorf("verify: signature invalid")
			}
			logger.Log.Info("verify: signature valid for run {runID}, digest {digest}", m.RunID, m.Digest)
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to a <run_id>.manifest.sig file (required)")
	cmd.Flags().StringVar(&publicKeyHex, "public-key", "", "Hex-encoded Ed25519 public key; defaults to the key embedded in the manifest")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}
