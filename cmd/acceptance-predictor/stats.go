// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pdiddy/acceptance-predictor/internal/reviewers"
	"github.com/pdiddy/acceptance-predictor/internal/stats"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize reviewer scores without contacting the service",
	Long: `Stats prints the reviewer panel and its score statistics: average,
population variance, highest and lowest score, and how many reviewers are
positive, neutral, or negative.

Scores and confidences are comma-separated in reviewer order; leave an entry
empty for a reviewer without a value, e.g. --scores 8,6,,3.`,
	RunE: runStats,
}

func init() {
	addPanelFlags(statsCmd)
	statsCmd.Flags().Bool("json", false, "output the summary as JSON")

	rootCmd.AddCommand(statsCmd)
}

func addPanelFlags(cmd *cobra.Command) {
	cmd.Flags().String("scores", "", "comma-separated reviewer scores, empty entries are unscored")
	cmd.Flags().String("confidences", "", "comma-separated reviewer confidences")
	cmd.Flags().Int("reviewers", types.DefaultReviewers, "number of reviewers (1-10)")
}

func panelFromFlags(cmd *cobra.Command) (*reviewers.Panel, error) {
	scores, _ := cmd.Flags().GetString("scores")
	confidences, _ := cmd.Flags().GetString("confidences")
	count, _ := cmd.Flags().GetInt("reviewers")
	return reviewers.FromLists(scores, confidences, count)
}

// statsOutput is the JSON shape of the stats command.
type statsOutput struct {
	Reviewers []types.ReviewerInput `json:"reviewers"`
	Summary   types.StatsSummary    `json:"summary"`
}

func runStats(cmd *cobra.Command, args []string) error {
	panel, err := panelFromFlags(cmd)
	if err != nil {
		return err
	}
	slots := panel.Slots()
	summary := stats.Summarize(slots, stats.FromConfig(cfg.Stats))

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statsOutput{Reviewers: slots, Summary: summary})
	}

	renderPanel(out, slots)
	renderSummary(out, summary)
	return nil
}
