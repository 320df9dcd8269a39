// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/acceptance-predictor/internal/backend"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the prediction service and its historical data",
	Long: `Status calls the health and data-status endpoints of the prediction
service and prints whether historical data is loaded, plus the submission
totals of the latest reference year.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output status as JSON")

	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	BaseURL    string                `json:"base_url"`
	Health     types.Health          `json:"health"`
	Historical types.HistoricalStats `json:"historical"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := backend.NewClient(cfg.Backend, backend.WithLogger(logger))

	var out statusOutput
	out.BaseURL = client.BaseURL()
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		h, err := client.Health(ctx)
		out.Health = h
		return err
	})
	g.Go(func() error {
		hist, err := client.FetchDataStatus(ctx)
		out.Historical = hist
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	state := green(out.Health.Status)
	if out.Health.Status != "healthy" {
		state = red(out.Health.Status)
	}
	fmt.Fprintf(w, "%s %s (%s)\n", bold("Service:"), out.BaseURL, state)
	if out.Health.Version != "" {
		fmt.Fprintf(w, "%s %s\n", bold("Version:"), out.Health.Version)
	}
	loaded := "no"
	if out.Health.DataLoaded {
		loaded = "yes (" + strings.Join(out.Health.HistoricalYears, ", ") + ")"
	}
	fmt.Fprintf(w, "%s %s\n", bold("Historical data:"), loaded)

	year := out.Historical.Year
	if year == "" {
		year = "defaults"
	}
	fmt.Fprintf(w, "%s %s: %d submissions, %d accepted (%.1f%%)\n", bold("Reference year"),
		year, out.Historical.TotalPapers, out.Historical.AcceptedPapers, out.Historical.AcceptanceRate*100)
	return nil
}
