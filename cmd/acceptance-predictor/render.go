// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/internal/gate"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func renderPanel(w io.Writer, slots []types.ReviewerInput) {
	fmt.Fprintf(w, "%-8s  %-6s  %s\n", "Reviewer", "Score", "Confidence")
	fmt.Fprintln(w, strings.Repeat("-", 30))
	for _, s := range slots {
		fmt.Fprintf(w, "%-8d  %-6s  %s\n", s.Index, optional(s.Score), optional(s.Confidence))
	}
}

func optional(v *float64) string {
	if v == nil {
		return gray(types.Sentinel)
	}
	return types.FormatScore(*v)
}

func renderSummary(w io.Writer, s types.StatsSummary) {
	fmt.Fprintln(w, bold("Score statistics"))
	fmt.Fprintf(w, "  Average   %-6s  Variance  %s\n", s.AverageText(), s.VarianceText())
	fmt.Fprintf(w, "  Highest   %-6s  Lowest    %s\n", s.HighestText(), s.LowestText())
	fmt.Fprintf(w, "  Positive  %-6s  Neutral   %-6s  Negative  %s\n",
		green(s.PositiveText()), s.NeutralText(), red(s.NegativeText()))
}

func renderSettings(w io.Writer, s types.Settings) {
	fmt.Fprintf(w, "%s %s %s\n", bold("Conference:"), s.Conference, s.Year)
	fmt.Fprintf(w, "%s %.2f\n", bold("Price:"), s.Price)
	fmt.Fprintf(w, "%s %s\n", bold("Score options:"), joinScores(s.ScoreOptions))
	fmt.Fprintf(w, "%s %s\n", bold("Confidence options:"), joinScores(s.ConfidenceOptions))
	fmt.Fprintf(w, "%s %ds\n", bold("Payment wait:"), s.WaitSeconds())
	fmt.Fprintf(w, "%s %s\n", bold("Model:"), s.Model)
	if s.QRCodeURL != "" {
		fmt.Fprintf(w, "%s %s\n", bold("Payment QR code:"), s.QRCodeURL)
	}
	fmt.Fprintf(w, "%s %s\n", bold("Contact:"), s.ContactPhone)
}

func joinScores(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = types.FormatScore(v)
	}
	return strings.Join(parts, ", ")
}

func renderPaymentPrompt(w io.Writer, s types.Settings, strategy string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", bold("Amount due:"), green(fmt.Sprintf("%.2f", s.Price)))
	if s.QRCodeURL != "" {
		fmt.Fprintf(w, "Scan to pay: %s\n", cyan(s.QRCodeURL))
	}
	switch strategy {
	case "countdown":
		fmt.Fprintf(w, "Confirm once paid. Confirmation unlocks in %ds.\n", s.WaitSeconds())
	default:
		fmt.Fprintln(w, "Waiting for the payment to be confirmed...")
	}
}

func renderTransition(w io.Writer, t gate.Transition) {
	switch t.To {
	case gate.PaymentSucceeded:
		if t.From == gate.AwaitingPayment {
			fmt.Fprintln(w, green("Payment confirmed."))
		}
	case gate.PredictionRequested:
		fmt.Fprintln(w, "Requesting prediction...")
	case gate.PaymentFailed, gate.PaymentTimedOut, gate.PredictionFailed:
		fmt.Fprintln(w, red(apperr.UserMessage(t.Err)))
	}
}

// probabilityColor picks green above 60%, yellow above 30%, red otherwise.
func probabilityColor(p float64) func(a ...any) string {
	switch {
	case p >= 0.6:
		return green
	case p >= 0.3:
		return yellow
	default:
		return red
	}
}

func renderPrediction(w io.Writer, p types.Prediction, hist types.HistoricalStats, conference string) {
	total := p.TotalPapers
	if total == 0 {
		total = hist.TotalPapers
	}
	accepted := p.AcceptedPapers
	if accepted == 0 {
		accepted = hist.AcceptedPapers
	}

	pct := strconv.FormatFloat(p.Probability*100, 'f', 1, 64) + "%"
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", bold("Acceptance probability:"), probabilityColor(p.Probability)(pct))
	fmt.Fprintf(w, "  Average score  %s\n", positiveOrSentinel(types.RoundTenth(p.AvgScore), 1))
	fmt.Fprintf(w, "  Minimum score  %s\n", positiveOrSentinel(p.MinScore, -1))
	fmt.Fprintf(w, "  Rank overall   %s / %d submissions\n", rankText(p.RankInAll), total)
	fmt.Fprintf(w, "  Rank accepted  %s / %d accepted\n", rankText(p.RankInAccepted), accepted)
	if p.PredictionMethod != "" {
		fmt.Fprintf(w, "  %s\n", gray("method: "+p.PredictionMethod))
	}
	if hist.AcceptanceRate > 0 {
		fmt.Fprintf(w, "  %s\n", gray(fmt.Sprintf("recent %s acceptance rate about %.1f%%", conference, hist.AcceptanceRate*100)))
	}
}

func positiveOrSentinel(v float64, prec int) string {
	if v <= 0 {
		return types.Sentinel
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func rankText(n int) string {
	if n <= 0 {
		return types.Sentinel
	}
	return "#" + strconv.Itoa(n)
}
