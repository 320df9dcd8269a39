// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/acceptance-predictor/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or export past predictions",
	Long: `History manages the local SQLite record of released predictions kept in
history.dir. Each entry holds the reviewer inputs, their statistics, and the
prediction returned for them.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past predictions, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := historyOptsFromFlags(cmd)
	if err != nil {
		return err
	}
	records, err := store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No predictions recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-10s  %-16s  %-7s  %s\n", "Recorded", "Conference", "Scores", "Avg", "Probability")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, r := range records {
		scores := joinScores(r.Scores)
		if len(scores) > 16 {
			scores = scores[:13] + "..."
		}
		fmt.Fprintf(w, "%-20s  %-10s  %-16s  %-7s  %.1f%%\n",
			r.RecordedAt.Local().Format("2006-01-02 15:04:05"), r.Conference, scores,
			r.Summary.AverageText(), r.Prediction.Probability*100)
	}
	fmt.Fprintf(w, "\n%d predictions\n", len(records))
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export past predictions to YAML or JSON",
	Long: `Export writes the history (or a filtered subset) to export.yaml or
export.json inside history.dir.`,
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := historyOptsFromFlags(cmd)
	if err != nil {
		return err
	}
	path, err := store.Export(cmd.Context(), format, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Exported to", path)
	return nil
}

// --- shared helpers ---

func historyOptsFromFlags(cmd *cobra.Command) (history.ListOptions, error) {
	conference, _ := cmd.Flags().GetString("conference")
	limit, _ := cmd.Flags().GetInt("limit")
	since, _ := cmd.Flags().GetString("since")

	opts := history.ListOptions{Conference: conference, Limit: limit}
	if since != "" {
		t, err := time.ParseInLocation(time.DateOnly, since, time.Local)
		if err != nil {
			return opts, fmt.Errorf("invalid --since %q: use YYYY-MM-DD", since)
		}
		opts.Since = t
	}
	return opts, nil
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("conference", "", "filter by conference")
		c.Flags().String("since", "", "only predictions on or after this date (YYYY-MM-DD)")
	}
	historyListCmd.Flags().Int("limit", 20, "maximum entries to list (0 = all)")
	historyListCmd.Flags().Bool("json", false, "output entries as JSON")
	historyExportCmd.Flags().String("format", history.FormatYAML, "export format: yaml or json")
	historyExportCmd.Flags().Int("limit", 0, "maximum entries to export (0 = all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
