// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pdiddy/acceptance-predictor/internal/backend"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the settings served by the prediction service",
	Long: `Settings fetches the operator-configured settings: price, payment QR code,
score and confidence options, conference, model, and payment wait time.
Fields the service leaves out show their defaults.`,
	RunE: runSettings,
}

func init() {
	settingsCmd.Flags().Bool("json", false, "output settings as JSON")

	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	client := backend.NewClient(cfg.Backend, backend.WithLogger(logger))
	s, err := client.FetchSettings(cmd.Context(), types.DefaultSettings())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	renderSettings(out, s)
	return nil
}
