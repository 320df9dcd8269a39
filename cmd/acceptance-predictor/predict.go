// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/internal/backend"
	"github.com/pdiddy/acceptance-predictor/internal/gate"
	"github.com/pdiddy/acceptance-predictor/internal/history"
	"github.com/pdiddy/acceptance-predictor/internal/metrics"
	"github.com/pdiddy/acceptance-predictor/internal/reviewers"
	"github.com/pdiddy/acceptance-predictor/internal/settings"
	"github.com/pdiddy/acceptance-predictor/internal/stats"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// pollEvery is how often the driver looks at the gate between events.
const pollEvery = 250 * time.Millisecond

// errNoConfirmation ends a countdown run whose input closed before any
// confirmation, since the countdown never resolves on its own.
var errNoConfirmation = apperr.Validation("input closed before the payment was confirmed; press Enter after paying or use --mock-pay")

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Pay and reveal the acceptance prediction for a paper",
	Long: `Predict summarizes the reviewer scores, opens the payment gate, and
prints the predicted acceptance probability once payment is confirmed.

With --gate poll (default) an order is created and its status is checked
every gate.poll_interval until it succeeds, fails, or gate.poll_attempts
checks pass. With --gate countdown the payment wait time counts down and
you confirm by pressing Enter once it reaches zero.

If the prediction call fails after payment, the payment is kept and the
prediction is retried up to --retries times without paying again.`,
	RunE: runPredict,
}

func init() {
	addPanelFlags(predictCmd)
	predictCmd.Flags().String("gate", "", "payment gate: poll or countdown (default from gate.variant)")
	predictCmd.Flags().Bool("mock-pay", false, "confirm payment automatically as soon as the gate allows it")
	predictCmd.Flags().Int("retries", 1, "prediction retries after a paid cycle fails")
	predictCmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this file on exit")
	predictCmd.Flags().Bool("no-history", false, "do not record the prediction locally")

	rootCmd.AddCommand(predictCmd)
}

// predictOptions are the per-run switches of the predict command.
type predictOptions struct {
	mockPay     bool
	prompt      bool
	retries     int
	metricsFile string
}

func runPredict(cmd *cobra.Command, args []string) error {
	panel, err := panelFromFlags(cmd)
	if err != nil {
		return err
	}

	c := cfg
	if variant, _ := cmd.Flags().GetString("gate"); variant != "" {
		c.Gate.Variant = types.GateVariant(variant)
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		c.History.Enabled = false
	}

	var opts predictOptions
	opts.mockPay, _ = cmd.Flags().GetBool("mock-pay")
	opts.retries, _ = cmd.Flags().GetInt("retries")
	opts.metricsFile, _ = cmd.Flags().GetString("metrics-textfile")
	opts.prompt = !opts.mockPay && term.IsTerminal(int(os.Stdin.Fd()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runPrediction(ctx, c, panel, opts, cmd.InOrStdin(), cmd.OutOrStdout())
}

// runPrediction drives one prediction session end to end: settings fetch,
// statistics, the gate cycle with background settings refresh, and the
// result.
func runPrediction(ctx context.Context, c types.Config, panel *reviewers.Panel, opts predictOptions, in io.Reader, out io.Writer) error {
	rec := metrics.New()
	defer func() {
		if opts.metricsFile == "" {
			return
		}
		if err := rec.WriteTextfile(opts.metricsFile); err != nil {
			logger.Warn("writing metrics textfile", "path", opts.metricsFile, "error", err)
		}
	}()

	client := backend.NewClient(c.Backend, backend.WithMetrics(rec), backend.WithLogger(logger))
	provider := settings.NewProvider(client, c.Settings,
		settings.WithMetrics(rec), settings.WithLogger(logger))
	if err := provider.Refresh(ctx); err != nil {
		fmt.Fprintln(out, yellow("Settings service unavailable, using last known settings."))
	}
	_ = provider.RefreshHistorical(ctx)

	snap := provider.Snapshot()
	if err := panel.CheckOptions(snap.ScoreOptions, snap.ConfidenceOptions); err != nil {
		return err
	}
	summary := stats.Summarize(panel.Slots(), stats.FromConfig(c.Stats))
	renderPanel(out, panel.Slots())
	renderSummary(out, summary)

	strategy := newStrategy(c.Gate, client, rec)
	events := make(chan gate.Transition, 32)
	m, err := gate.New(gate.Options{
		Strategy:  strategy,
		Predictor: client,
		Scores:    panel,
		Settings:  provider,
		Metrics:   rec,
		Logger:    logger,
		Observer: func(t gate.Transition) {
			select {
			case events <- t:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer m.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	var st gate.Status
	g.Go(func() error { return provider.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		var err error
		st, err = drive(gctx, m, strategy.Name(), events, opts, in, out)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if st.State != gate.PredictionReady || st.Prediction == nil {
		if st.Err != nil {
			return st.Err
		}
		return fmt.Errorf("prediction not available (gate %s)", st.State)
	}

	renderPrediction(out, *st.Prediction, provider.Historical(), st.Settings.Conference)
	if c.History.Enabled {
		if err := saveHistory(ctx, c.History, st, strategy.Name(), panel, summary); err != nil {
			logger.Warn("recording prediction history", "error", err)
		}
	}
	return nil
}

func newStrategy(g types.GateConfig, orders gate.Orders, rec *metrics.Recorder) gate.Strategy {
	if g.Variant == types.GateCountdown {
		return gate.Countdown{Tick: g.Tick, RequireElapsed: g.RequireElapsed}
	}
	return gate.Poll{
		Orders:      orders,
		Interval:    g.PollInterval,
		MaxAttempts: g.PollAttempts,
		Metrics:     rec,
	}
}

// drive starts a cycle and reacts to gate events until the cycle settles
// with nothing left to retry.
func drive(ctx context.Context, m *gate.Machine, strategy string, events <-chan gate.Transition, opts predictOptions, in io.Reader, out io.Writer) (gate.Status, error) {
	settled := make(chan struct{}, 1)
	watch := func() {
		go func() {
			_, _ = m.Wait(ctx)
			settled <- struct{}{}
		}()
	}

	if _, err := m.Predict(ctx); err != nil {
		return m.Status(), err
	}
	renderPaymentPrompt(out, m.Status().Settings, strategy)

	// Every line on in is a confirm request. A request made before the
	// gate allows it is kept and sent once confirmation unlocks.
	var confirmReq <-chan struct{}
	if !opts.mockPay {
		if opts.prompt {
			fmt.Fprintln(out, "Press Enter once you have paid.")
		}
		confirmReq = readLines(ctx, in)
	}
	if opts.mockPay && m.ConfirmAvailable() {
		_ = m.Confirm()
	}
	watch()

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()
	unlocked := m.ConfirmAvailable()
	retries := opts.retries
	pending, confirmed := false, false

	for {
		select {
		case <-ctx.Done():
			return m.Status(), ctx.Err()

		case t := <-events:
			renderTransition(out, t)

		case _, ok := <-confirmReq:
			if !ok {
				confirmReq = nil
				if strategy == "countdown" && !pending && !confirmed && m.Status().State == gate.AwaitingPayment {
					return m.Status(), errNoConfirmation
				}
				continue
			}
			if err := m.Confirm(); err != nil {
				pending = true
				fmt.Fprintf(out, "%s %ds left, confirming once it unlocks.\n", yellow("Confirmation is not available yet."), m.Status().Remaining)
				continue
			}
			confirmed = true

		case <-ticker.C:
			if !m.ConfirmAvailable() {
				continue
			}
			if opts.mockPay || pending {
				if m.Confirm() == nil {
					pending, confirmed = false, true
				}
			} else if !unlocked && strategy == "countdown" {
				fmt.Fprintln(out, green("Confirmation unlocked."))
			}
			unlocked = true

		case <-settled:
			drain(events, out)
			st := m.Status()
			if st.State == gate.PaymentSucceeded && retries > 0 {
				retries--
				fmt.Fprintln(out, "Retrying prediction, payment kept...")
				if _, err := m.Predict(ctx); err != nil {
					return m.Status(), err
				}
				watch()
				continue
			}
			return st, nil
		}
	}
}

func drain(events <-chan gate.Transition, out io.Writer) {
	for {
		select {
		case t := <-events:
			renderTransition(out, t)
		default:
			return
		}
	}
}

// readLines signals once per line read from r until r ends or ctx is
// done. A read blocked on r itself only returns with the next line or EOF.
func readLines(ctx context.Context, r io.Reader) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func saveHistory(ctx context.Context, hc types.HistoryConfig, st gate.Status, strategy string, panel *reviewers.Panel, summary types.StatsSummary) error {
	store, err := history.Open(hc)
	if err != nil {
		return err
	}
	defer store.Close()

	scores, confidences := panel.Flatten()
	return store.Save(ctx, history.Record{
		CycleID:     st.CycleID,
		RecordedAt:  time.Now(),
		Conference:  st.Settings.Conference,
		Strategy:    strategy,
		OrderID:     st.OrderID,
		Price:       st.Settings.Price,
		Scores:      scores,
		Confidences: confidences,
		Summary:     summary,
		Prediction:  *st.Prediction,
	})
}
